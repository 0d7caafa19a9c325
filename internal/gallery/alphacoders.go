package gallery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markers used by the alphacoders gallery templates. Class attributes are
// matched exactly, not per class token.
const (
	pageInfoSelector       = `[class="btn btn-info btn-lg"]`
	titleSelector          = `h1.title`
	downloadButtonSelector = `[class="btn btn-primary btn-block download-button"]`
)

var pageCountPattern = regexp.MustCompile(`/\s*(\d+)`)

// Alphacoders reads wall.alphacoders.com gallery listings
type Alphacoders struct {
	downloadBaseURL string
}

// NewAlphacoders creates the alphacoders adapter
func NewAlphacoders(downloadBaseURL string) Adapter {
	return &Alphacoders{downloadBaseURL: strings.TrimRight(downloadBaseURL, "/")}
}

func (a *Alphacoders) Name() string {
	return "alphacoders"
}

// Title returns the trimmed text of the album header
func (a *Alphacoders) Title(doc *goquery.Document) (string, error) {
	sel := doc.Find(titleSelector).First()
	if sel.Length() == 0 {
		return "", &ExtractionError{Field: "title", Reason: "title marker not found"}
	}
	title := strings.TrimSpace(sel.Text())
	if title == "" {
		return "", &ExtractionError{Field: "title", Reason: "title marker is empty"}
	}
	return title, nil
}

// TotalPages reads the page-info control, e.g. "1 2 3 ... / 12" -> 12.
// The last "/"-prefixed integer run wins.
func (a *Alphacoders) TotalPages(doc *goquery.Document) (int, error) {
	sel := doc.Find(pageInfoSelector).First()
	if sel.Length() == 0 {
		return 0, &ExtractionError{Field: "page count", Reason: "page-info marker not found"}
	}

	text := sel.Text()
	matches := pageCountPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, &ExtractionError{Field: "page count", Reason: fmt.Sprintf("no page count in %q", strings.TrimSpace(text))}
	}

	raw := matches[len(matches)-1][1]
	total, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ExtractionError{Field: "page count", Reason: fmt.Sprintf("invalid number %q", raw), Err: err}
	}
	if total < 1 {
		return 0, &ExtractionError{Field: "page count", Reason: "gallery reports zero pages"}
	}
	return total, nil
}

// Items collects every complete download button on the page
func (a *Alphacoders) Items(doc *goquery.Document) []ImageDescriptor {
	items := make([]ImageDescriptor, 0)
	doc.Find(downloadButtonSelector).Each(func(_ int, s *goquery.Selection) {
		id, ok := nonEmptyAttr(s, "data-id")
		if !ok {
			return
		}
		server, ok := nonEmptyAttr(s, "data-server")
		if !ok {
			return
		}
		fileType, ok := nonEmptyAttr(s, "data-type")
		if !ok {
			return
		}
		items = append(items, ImageDescriptor{ID: id, Server: server, Type: fileType})
	})
	return items
}

// DownloadURL fills <base>/<id>/<server>/<type>
func (a *Alphacoders) DownloadURL(item ImageDescriptor) string {
	return a.downloadBaseURL + "/" + item.ID + "/" + item.Server + "/" + item.Type
}

func nonEmptyAttr(s *goquery.Selection, name string) (string, bool) {
	v, ok := s.Attr(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
