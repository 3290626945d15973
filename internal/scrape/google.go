package scrape

import (
	"context"
	"fmt"
	"regexp"

	"pricesight/internal/fetch"
	"pricesight/internal/logger"
	"pricesight/internal/models"
	"pricesight/internal/price"
)

var googlePriceRe = regexp.MustCompile(`€\s*([\d.,]+)`)

// GoogleShoppingAdapter pattern-matches currency-prefixed amounts anywhere in
// the shopping results page. The page has no stable row markup, which makes
// this the noisiest source: expect stray amounts, and rely on the
// plausibility band and deduplication to thin them out.
type GoogleShoppingAdapter struct {
	fetcher   fetch.Fetcher
	domain    string
	maxPrices int
}

// NewGoogleShoppingAdapter creates the shopping-aggregator adapter.
func NewGoogleShoppingAdapter(f fetch.Fetcher) *GoogleShoppingAdapter {
	return &GoogleShoppingAdapter{fetcher: f, domain: "www.google.it", maxPrices: 8}
}

func (a *GoogleShoppingAdapter) Source() models.Source { return models.SourceGoogleShopping }

// Search fetches the shopping results page and extracts every plausible
// currency-prefixed amount, deduplicated by value.
func (a *GoogleShoppingAdapter) Search(ctx context.Context, query string) ([]models.PriceObservation, error) {
	u := fmt.Sprintf("https://%s/search?q=%s&tbm=shop&hl=it", a.domain, queryParam(query))
	doc, err := a.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("google shopping fetch: %w", err)
	}

	var obs []models.PriceObservation
	for _, m := range googlePriceRe.FindAllStringSubmatch(doc, -1) {
		if len(obs) >= a.maxPrices {
			break
		}
		v, err := price.ParsePlausible(m[1])
		if err != nil {
			continue
		}
		obs = append(obs, models.PriceObservation{
			Source:    models.SourceGoogleShopping,
			Price:     v,
			Currency:  "EUR",
			Condition: models.ConditionNew,
		})
	}

	obs = dedupe(obs)
	logger.Info("Google Shopping: found %d prices for %q", len(obs), query)
	return obs, nil
}
