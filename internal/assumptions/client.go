package assumptions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrNotFound indicates the document URL returned 404.
	ErrNotFound = errors.New("assumptions: document not found")
	// ErrRateLimited indicates the server asked us to back off.
	ErrRateLimited = errors.New("assumptions: rate limited")
	// ErrTooLarge indicates the document exceeded maxBodySize.
	ErrTooLarge = errors.New("assumptions: document too large")
)

// Client fetches assumption documents over HTTP.
type Client struct {
	http *http.Client
}

// NewClient returns a client using hc, or a default client when hc is nil.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc}
}

// Fetch downloads the document at url and returns its raw body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("assumptions: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", "github.com/theirongolddev/nestegg/1.0")

	//nolint:gosec // URL comes from the user's own configuration
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assumptions: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("assumptions: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("assumptions: reading response: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, ErrTooLarge
	}
	return body, nil
}
