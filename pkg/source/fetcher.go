package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/repeater/v2"
	"golang.org/x/net/html/charset"
)

// Fetcher is the shared HTTP client for listing pages. It sets browser-like
// headers, normalizes responses to UTF-8 and retries transient failures with
// bounded backoff. Every request carries a per-request timeout.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// page size cap, tender listing pages are small and a runaway response
// should not blow up memory
const maxPageSize = 5 << 20

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Get retrieves a URL and returns the body decoded to UTF-8.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	retrier := repeater.NewBackoff(3, 300*time.Millisecond, repeater.WithMaxDelay(3*time.Second))
	err := retrier.Do(ctx, func() error {
		data, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Document retrieves a URL and parses it into a goquery document.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", url, err)
	}
	return doc, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	addBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	// convert whatever encoding the site serves to UTF-8
	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset for %s: %w", url, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}
