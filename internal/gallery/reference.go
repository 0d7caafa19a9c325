package gallery

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Reference is the immutable description of a gallery discovered from its
// first page
type Reference struct {
	BaseURL    string
	Title      string
	TotalPages int
}

// NewReference reads title and page count from the first page document.
// baseURL must already be normalized.
func NewReference(baseURL string, doc *goquery.Document, adapter Adapter) (Reference, error) {
	totalPages, err := adapter.TotalPages(doc)
	if err != nil {
		return Reference{}, err
	}

	rawTitle, err := adapter.Title(doc)
	if err != nil {
		return Reference{}, err
	}
	title, err := SanitizeDirName(rawTitle)
	if err != nil {
		return Reference{}, err
	}

	return Reference{
		BaseURL:    baseURL,
		Title:      title,
		TotalPages: totalPages,
	}, nil
}

// PageURL returns the listing URL of page p
func (r Reference) PageURL(page int) string {
	return r.BaseURL + "&page=" + strconv.Itoa(page)
}
