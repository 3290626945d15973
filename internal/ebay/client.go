// Package ebay implements a client for the official Browse API: a
// client-credentials OAuth2 flow with a cached bearer token, and an item
// search that yields normalized price observations.
package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricesight/internal/logger"
	"pricesight/internal/models"
	"pricesight/internal/price"
)

// tokenSafetyMargin is subtracted from the token's literal expiry so a token
// is never used when it could expire mid-request.
const tokenSafetyMargin = 5 * time.Minute

// maxSearchLimit is the Browse API's hard cap on the limit parameter.
const maxSearchLimit = 200

// Client talks to the Browse API. The cached token is the only mutable state
// and is guarded by mu; a refresh runs with the lock held, so concurrent
// callers wait for the in-flight grant instead of issuing their own.
type Client struct {
	authURL       string
	browseURL     string
	clientID      string
	clientSecret  string
	marketplaceID string
	scope         string
	httpClient    *http.Client

	mu           chan struct{} // 1-slot semaphore; see ensureToken
	token        string
	tokenExpires time.Time

	now func() time.Time
}

// Config carries the Client's construction parameters.
type Config struct {
	AuthURL       string
	BrowseURL     string
	ClientID      string
	ClientSecret  string
	MarketplaceID string
	Scope         string
	Timeout       time.Duration
}

// NewClient creates a Browse API client. Credentials may be empty; searches
// then return empty results once authentication fails.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		authURL:       cfg.AuthURL,
		browseURL:     strings.TrimRight(cfg.BrowseURL, "/"),
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		marketplaceID: cfg.MarketplaceID,
		scope:         cfg.Scope,
		httpClient:    &http.Client{Timeout: timeout},
		mu:            make(chan struct{}, 1),
		now:           time.Now,
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ensureToken returns a bearer token, requesting a fresh one when the cached
// token is missing, past its safety margin, or force is set. The semaphore is
// held across the grant request so only one refresh is ever in flight.
func (c *Client) ensureToken(ctx context.Context, force bool) (string, error) {
	select {
	case c.mu <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.mu }()

	if !force && c.token != "" && c.now().Before(c.tokenExpires.Add(-tokenSafetyMargin)) {
		return c.token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("ebay: client credentials are not configured")
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {c.scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.token = ""
		return "", fmt.Errorf("ebay: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.token = ""
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ebay: token request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		c.token = ""
		return "", fmt.Errorf("ebay: failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		c.token = ""
		return "", fmt.Errorf("ebay: token response missing access_token")
	}

	c.token = tr.AccessToken
	c.tokenExpires = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	logger.Info("eBay OAuth token obtained, expires in %ds", tr.ExpiresIn)
	return c.token, nil
}

// SearchOptions narrows a Browse API search.
type SearchOptions struct {
	Condition string // NEW, USED, REFURBISHED; empty = any
	MinPrice  float64
	MaxPrice  float64
}

type itemSummary struct {
	ItemID string `json:"itemId"`
	Title  string `json:"title"`
	Price  struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	Condition  json.RawMessage `json:"condition"`
	ItemWebURL string          `json:"itemWebUrl"`
}

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

// Search runs a filtered item search and returns normalized observations.
// On a 401 it re-authenticates once and retries; any further auth failure is
// returned as an error. All other HTTP failures are logged and yield an
// empty list, keeping the research fan-out failure-tolerant.
func (c *Client) Search(ctx context.Context, query string, limit int, opts SearchOptions) ([]models.PriceObservation, error) {
	token, err := c.ensureToken(ctx, false)
	if err != nil {
		return nil, err
	}

	obs, status, err := c.doSearch(ctx, token, query, limit, opts)
	if err != nil {
		logger.Warn("eBay search failed for %q: %v", query, err)
		return nil, nil
	}
	if status == http.StatusUnauthorized {
		// Token rejected despite the safety margin: one forced refresh, one
		// retry, never a loop.
		token, err = c.ensureToken(ctx, true)
		if err != nil {
			return nil, err
		}
		obs, status, err = c.doSearch(ctx, token, query, limit, opts)
		if err != nil {
			logger.Warn("eBay search retry failed for %q: %v", query, err)
			return nil, nil
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("ebay: request unauthorized after re-authentication")
		}
	}
	return obs, nil
}

func (c *Client) doSearch(ctx context.Context, token, query string, limit int, opts SearchOptions) ([]models.PriceObservation, int, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var filters []string
	if opts.Condition != "" {
		filters = append(filters, fmt.Sprintf("conditions:{%s}", opts.Condition))
	}
	if opts.MinPrice > 0 {
		max := ""
		if opts.MaxPrice > 0 {
			max = fmt.Sprintf("%.2f", opts.MaxPrice)
		}
		filters = append(filters, fmt.Sprintf("price:[%.2f..%s],priceCurrency:EUR", opts.MinPrice, max))
	}

	params := url.Values{
		"q":     {query},
		"limit": {fmt.Sprintf("%d", limit)},
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.browseURL+"/item_summary/search?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.marketplaceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, http.StatusUnauthorized, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, resp.StatusCode, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode search response: %w", err)
	}

	var obs []models.PriceObservation
	for _, item := range sr.ItemSummaries {
		v, err := price.Parse(item.Price.Value)
		if err != nil || !price.Plausible(v) {
			continue
		}
		currency := item.Price.Currency
		if currency == "" {
			currency = "EUR"
		}
		obs = append(obs, models.PriceObservation{
			Source:    models.SourceEbayAPI,
			Price:     v,
			Currency:  currency,
			Condition: models.NormalizeCondition(decodeCondition(item.Condition)),
			URL:       item.ItemWebURL,
			Title:     item.Title,
		})
	}

	logger.Info("eBay API: found %d items for %q", len(obs), query)
	return obs, resp.StatusCode, nil
}

// decodeCondition handles the two shapes the API uses for condition: a plain
// string or an object carrying a conditionId.
func decodeCondition(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ConditionID string `json:"conditionId"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ConditionID
	}
	return ""
}

// MarketData searches active used and new listings and merges them, the
// used set first. The Browse API has no sold-listings view; sold prices come
// from the scraped adapters instead.
func (c *Client) MarketData(ctx context.Context, query string) ([]models.PriceObservation, error) {
	used, err := c.Search(ctx, query, 15, SearchOptions{Condition: "USED"})
	if err != nil {
		return nil, err
	}
	fresh, err := c.Search(ctx, query, 10, SearchOptions{Condition: "NEW"})
	if err != nil {
		// Half a result set is still a result set.
		return used, nil
	}
	return append(used, fresh...), nil
}
