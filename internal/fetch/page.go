package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// FetchError is returned when a page cannot be downloaded or parsed
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PageFetcher retrieves gallery listing pages through a colly collector
type PageFetcher struct {
	collector *colly.Collector
}

// NewPageFetcher creates a fetcher with the given User-Agent and request timeout
func NewPageFetcher(userAgent string, timeout time.Duration) *PageFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)

	return &PageFetcher{collector: c}
}

// Fetch downloads url and parses it into a document. Cancelling ctx aborts
// the request in flight. Safe for concurrent use.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	// Clone shares the HTTP backend but not the callbacks
	c := f.collector.Clone()
	c.Context = ctx

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if body == nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("empty response")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	return doc, nil
}
