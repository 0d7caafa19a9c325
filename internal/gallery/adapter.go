package gallery

import (
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Adapter knows the markup conventions of one gallery site
type Adapter interface {
	// Name identifies the adapter in logs
	Name() string
	// Title returns the raw album title from the first page
	Title(doc *goquery.Document) (string, error)
	// TotalPages returns the page count shown on the first page
	TotalPages(doc *goquery.Document) (int, error)
	// Items returns the download descriptors of one page in document order
	Items(doc *goquery.Document) []ImageDescriptor
	// DownloadURL builds the full-resolution download URL of an image
	DownloadURL(item ImageDescriptor) string
}

// Factory builds an Adapter that downloads images from downloadBaseURL
type Factory func(downloadBaseURL string) Adapter

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("alphacoders.com", NewAlphacoders)
}

// Register associates a host (and all of its subdomains) with an adapter factory
func Register(host string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(host)] = factory
}

// ForURL picks the adapter registered for the gallery URL's host, falling
// back to the alphacoders adapter when nothing matches. The most specific
// (longest) registered host wins.
func ForURL(galleryURL, downloadBaseURL string) Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()

	parsed, err := url.Parse(galleryURL)
	if err != nil {
		return NewAlphacoders(downloadBaseURL)
	}
	host := strings.ToLower(parsed.Hostname())

	var best string
	var factory Factory
	for registered, f := range registry {
		if host != registered && !strings.HasSuffix(host, "."+registered) {
			continue
		}
		if len(registered) > len(best) {
			best, factory = registered, f
		}
	}
	if factory == nil {
		return NewAlphacoders(downloadBaseURL)
	}
	return factory(downloadBaseURL)
}
