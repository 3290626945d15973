package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"pricesight/internal/fetch"
	"pricesight/internal/logger"
	"pricesight/internal/models"
	"pricesight/internal/price"
)

const amazonItemMarker = `data-component-type="s-search-result"`

var (
	amazonWholeRe    = regexp.MustCompile(`a-price-whole[^>]*>([\d.,]+)`)
	amazonFractionRe = regexp.MustCompile(`a-price-fraction[^>]*>(\d{1,2})`)
	amazonTitleRe    = regexp.MustCompile(`(?s)<h2[^>]*>.*?<span[^>]*>([^<]+)</span>`)
)

// AmazonAdapter reads general-merchandise search results. Prices here are
// retail-new and split into a whole and a fraction cell.
type AmazonAdapter struct {
	fetcher fetch.Fetcher
	domain  string
	maxRows int
}

// NewAmazonAdapter creates the general-merchandise adapter for the home market.
func NewAmazonAdapter(f fetch.Fetcher) *AmazonAdapter {
	return &AmazonAdapter{fetcher: f, domain: "www.amazon.it", maxRows: 6}
}

func (a *AmazonAdapter) Source() models.Source { return models.SourceAmazon }

// Search fetches the search results page and extracts new-condition
// observations.
func (a *AmazonAdapter) Search(ctx context.Context, query string) ([]models.PriceObservation, error) {
	u := fmt.Sprintf("https://%s/s?k=%s", a.domain, queryParam(query))
	doc, err := a.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("amazon fetch: %w", err)
	}

	var obs []models.PriceObservation
	for _, chunk := range itemChunks(doc, amazonItemMarker, a.maxRows) {
		m := amazonWholeRe.FindStringSubmatch(chunk)
		if m == nil {
			continue
		}
		// The whole cell uses thousands separators only ("1.234"); the
		// decimal part lives in its own fraction cell.
		whole := strings.NewReplacer(".", "", ",", "").Replace(m[1])
		v, err := price.Parse(whole)
		if err != nil {
			continue
		}
		if f := amazonFractionRe.FindStringSubmatch(chunk); f != nil {
			frac, err := price.Parse("0." + f[1])
			if err == nil {
				v += frac
			}
		}
		if !price.Plausible(v) {
			continue
		}

		o := models.PriceObservation{
			Source:    models.SourceAmazon,
			Price:     v,
			Currency:  "EUR",
			Condition: models.ConditionNew,
		}
		if t := amazonTitleRe.FindStringSubmatch(chunk); t != nil {
			o.Title = strings.TrimSpace(t[1])
		}
		obs = append(obs, o)
	}

	obs = dedupe(obs)
	logger.Info("Amazon: found %d prices for %q", len(obs), query)
	return obs, nil
}
