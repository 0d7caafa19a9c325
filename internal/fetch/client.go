package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client streams binary downloads (images) straight to a writer
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a download client with the given User-Agent and timeout
func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Stream performs a GET request and copies the response body into w.
// Redirects are followed. Any non-2xx status is an error.
func (c *Client) Stream(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.Copy(w, resp.Body)
}
