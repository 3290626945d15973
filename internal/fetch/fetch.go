// Package fetch provides the document-fetch capability the scraped sources
// depend on. Marketplace pages are served through a scraping proxy (or a
// headless browser) so the adapters never talk to the sites directly.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a marketplace page is read. Search result
// pages are well under this; anything larger is not worth parsing.
const maxBodyBytes = 4 << 20

// Fetcher returns the raw document content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// ProxyFetcher fetches pages through a ScraperAPI-compatible proxy endpoint.
type ProxyFetcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProxyFetcher creates a ProxyFetcher. An empty apiKey is allowed but
// every Fetch will fail; scraped sources then degrade to empty results.
func NewProxyFetcher(apiKey, baseURL string, timeout time.Duration) *ProxyFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProxyFetcher{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves rawURL through the proxy and returns the response body.
func (f *ProxyFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.apiKey == "" {
		return "", errors.New("fetch: proxy api key is not configured")
	}

	u := f.baseURL + "?" + url.Values{
		"api_key": {f.apiKey},
		"url":     {rawURL},
		"render":  {"false"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("fetch: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
