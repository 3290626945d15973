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

// Listing rows are <li class="s-item ..."> blocks; the trailing space in the
// marker keeps it from matching the s-item__* child classes.
const ebayItemMarker = `class="s-item `

var (
	ebayPriceRe = regexp.MustCompile(`s-item__price[^>]*>([^<]+)<`)
	ebayTitleRe = regexp.MustCompile(`s-item__title[^>]*>(?:<[^>]+>)*([^<]+)<`)
	ebayLinkRe  = regexp.MustCompile(`s-item__link[^>]*href="([^"]+)"`)
)

// SoldAdapter reads completed/sold listings, the strongest market signal the
// scraped sources produce: these are prices items actually changed hands at.
type SoldAdapter struct {
	fetcher fetch.Fetcher
	domain  string
	maxRows int
}

// NewSoldAdapter creates a sold-listings adapter against the home market.
func NewSoldAdapter(f fetch.Fetcher) *SoldAdapter {
	return &SoldAdapter{fetcher: f, domain: "www.ebay.it", maxRows: 10}
}

func (a *SoldAdapter) Source() models.Source { return models.SourceEbaySold }

// Search fetches the sold-listings results page and extracts observations.
func (a *SoldAdapter) Search(ctx context.Context, query string) ([]models.PriceObservation, error) {
	u := fmt.Sprintf("https://%s/sch/i.html?_nkw=%s&LH_Complete=1&LH_Sold=1&_sop=13",
		a.domain, queryParam(query))
	doc, err := a.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("sold listings fetch: %w", err)
	}
	obs := extractEbayRows(doc, models.SourceEbaySold, a.maxRows)
	logger.Info("eBay sold: found %d prices for %q", len(obs), query)
	return obs, nil
}

// ActiveAdapter reads currently listed items. Asking prices, not sale
// prices: useful as a ceiling, noisier than the sold set.
type ActiveAdapter struct {
	fetcher fetch.Fetcher
	domain  string
	maxRows int
}

// NewActiveAdapter creates an active-listings adapter against the home market.
func NewActiveAdapter(f fetch.Fetcher) *ActiveAdapter {
	return &ActiveAdapter{fetcher: f, domain: "www.ebay.it", maxRows: 8}
}

func (a *ActiveAdapter) Source() models.Source { return models.SourceEbayActive }

// Search fetches the newly-listed results page and extracts observations.
func (a *ActiveAdapter) Search(ctx context.Context, query string) ([]models.PriceObservation, error) {
	u := fmt.Sprintf("https://%s/sch/i.html?_nkw=%s&_sop=15", a.domain, queryParam(query))
	doc, err := a.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("active listings fetch: %w", err)
	}
	obs := extractEbayRows(doc, models.SourceEbayActive, a.maxRows)
	logger.Info("eBay active: found %d prices for %q", len(obs), query)
	return obs, nil
}

// extractEbayRows pulls price/title/link out of each listing chunk. Rows
// without a parseable, plausible price are skipped; listings here carry no
// usable condition field, so the used default applies.
func extractEbayRows(doc string, source models.Source, maxRows int) []models.PriceObservation {
	var obs []models.PriceObservation
	for _, chunk := range itemChunks(doc, ebayItemMarker, maxRows) {
		m := ebayPriceRe.FindStringSubmatch(chunk)
		if m == nil {
			continue
		}
		v, err := price.ParsePlausible(m[1])
		if err != nil {
			continue
		}

		o := models.PriceObservation{
			Source:    source,
			Price:     v,
			Currency:  "EUR",
			Condition: models.ConditionUsed,
		}
		if t := ebayTitleRe.FindStringSubmatch(chunk); t != nil {
			o.Title = strings.TrimSpace(t[1])
		}
		if l := ebayLinkRe.FindStringSubmatch(chunk); l != nil {
			o.URL = l[1]
		}
		obs = append(obs, o)
	}
	return dedupe(obs)
}
