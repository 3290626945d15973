// Package intl samples sold prices across international marketplace storefronts
// and derives import/export arbitrage economics against the home market.
package intl

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"pricesight/internal/fetch"
	"pricesight/internal/logger"
	"pricesight/internal/models"
	"pricesight/internal/price"
)

// Home is the domestic market all economics are computed against.
const Home = "IT"

// Customs and fee policy for the home market. Product decisions, not derived.
const (
	// dutyFreeThreshold is the landed cost (EUR) above which extra-bloc
	// imports incur duty on top of VAT.
	dutyFreeThreshold = 150.0

	importVATLoading     = 1.22 // VAT only
	importVATDutyLoading = 1.27 // VAT plus estimated duty

	// defaultImportShipping is assumed when a market profile carries no
	// inbound shipping estimate.
	defaultImportShipping = 15.0

	marketplaceFeeRate = 0.13

	importProfitThresholdPct = 20.0
	exportProfitThresholdPct = 25.0
)

const maxSampleRows = 10

// Market is the static profile of one storefront country.
type Market struct {
	Name           string
	Domain         string
	Currency       string
	RateToEUR      float64
	ShippingToHome float64
}

// markets maps country code to its storefront profile. FX rates are static
// estimates; good enough for a go/no-go signal, not for accounting.
var markets = map[string]Market{
	"IT": {Name: "Italia", Domain: "ebay.it", Currency: "EUR", RateToEUR: 1.0, ShippingToHome: 0},
	"US": {Name: "USA", Domain: "ebay.com", Currency: "USD", RateToEUR: 0.92, ShippingToHome: 25},
	"UK": {Name: "Regno Unito", Domain: "ebay.co.uk", Currency: "GBP", RateToEUR: 1.17, ShippingToHome: 15},
	"DE": {Name: "Germania", Domain: "ebay.de", Currency: "EUR", RateToEUR: 1.0, ShippingToHome: 10},
	"FR": {Name: "Francia", Domain: "ebay.fr", Currency: "EUR", RateToEUR: 1.0, ShippingToHome: 10},
	// No dedicated storefront; the US one is searched with a location filter.
	"JP": {Name: "Giappone", Domain: "ebay.com", Currency: "JPY", RateToEUR: 0.0062, ShippingToHome: 35},
}

// extraBloc lists the countries outside the home trade bloc, whose imports
// are subject to customs loading.
var extraBloc = map[string]bool{"US": true, "UK": true, "JP": true}

var priceRe = regexp.MustCompile(`s-item__price[^>]*>([^<]+)<`)

// DefaultCountries is the market set compared when the caller does not pick.
var DefaultCountries = []string{"IT", "US", "UK", "DE", "JP"}

// Comparator samples sold prices per country through a fetch capability.
type Comparator struct {
	fetcher fetch.Fetcher
}

// NewComparator creates a Comparator.
func NewComparator(f fetch.Fetcher) *Comparator {
	return &Comparator{fetcher: f}
}

// Compare fans out one sold-price sample per requested country and collects
// whatever came back. A failing or empty country is logged and skipped; the
// comparison never fails as a whole.
func (c *Comparator) Compare(ctx context.Context, query string, countries []string, condition models.Condition) *models.InternationalComparison {
	if len(countries) == 0 {
		countries = DefaultCountries
	}
	logger.Info("Intl: comparing %d markets for %q", len(countries), query)

	samples := make([]*models.InternationalPriceSample, len(countries))
	var wg sync.WaitGroup
	for i, country := range countries {
		wg.Add(1)
		go func(i int, country string) {
			defer wg.Done()
			s, err := c.sampleMarket(ctx, query, country, condition)
			if err != nil {
				logger.Warn("Intl: %s sample failed: %v", country, err)
				return
			}
			samples[i] = s
		}(i, country)
	}
	wg.Wait()

	cmp := &models.InternationalComparison{Query: query}
	for _, s := range samples {
		if s != nil {
			cmp.Samples = append(cmp.Samples, *s)
		}
	}
	for i := range cmp.Samples {
		if cmp.Samples[i].Country == Home {
			cmp.HomeSample = &cmp.Samples[i]
			break
		}
	}
	logger.Info("Intl: got samples from %d of %d markets", len(cmp.Samples), len(countries))
	return cmp
}

// sampleMarket fetches one country's sold listings and averages the plausible
// prices into a single sample. Returns nil without error when the market
// yields no usable prices.
func (c *Comparator) sampleMarket(ctx context.Context, query, country string, condition models.Condition) (*models.InternationalPriceSample, error) {
	market, ok := markets[country]
	if !ok {
		return nil, fmt.Errorf("unknown market %q", country)
	}

	doc, err := c.fetcher.Fetch(ctx, marketURL(market, country, query, condition))
	if err != nil {
		return nil, err
	}

	var prices []float64
	for _, m := range priceRe.FindAllStringSubmatch(doc, maxSampleRows) {
		v, err := price.ParsePlausible(m[1])
		if err != nil {
			continue
		}
		prices = append(prices, v)
	}
	if len(prices) == 0 {
		return nil, nil
	}

	var sum float64
	for _, v := range prices {
		sum += v
	}
	local := sum / float64(len(prices))
	eur := local * market.RateToEUR
	logger.Debug("Intl %s: avg %s %.0f = EUR %.0f over %d rows", country, market.Currency, local, eur, len(prices))

	return &models.InternationalPriceSample{
		Country:        country,
		CountryName:    market.Name,
		Currency:       market.Currency,
		LocalPrice:     local,
		EURPrice:       eur,
		ShippingToHome: market.ShippingToHome,
		Condition:      condition,
	}, nil
}

func marketURL(market Market, country, query string, condition models.Condition) string {
	var filters strings.Builder
	switch condition {
	case models.ConditionUsed:
		filters.WriteString("&LH_ItemCondition=3000")
	case models.ConditionNew:
		filters.WriteString("&LH_ItemCondition=1000")
	}
	if country == "JP" {
		filters.WriteString("&LH_PrefLoc=2&_sacat=0")
	}
	return fmt.Sprintf("https://www.%s/sch/i.html?_nkw=%s&LH_Complete=1&LH_Sold=1%s&_sop=13",
		market.Domain, strings.ReplaceAll(strings.TrimSpace(query), " ", "+"), filters.String())
}

// ImportOpportunity computes the economics of buying in the cheapest sampled
// market and selling at home for sellPrice. Extra-bloc sources incur VAT
// loading, plus duty when the landed cost exceeds the duty-free threshold.
// Returns nil when no market was sampled.
func ImportOpportunity(c *models.InternationalComparison, sellPrice float64) *models.ArbitrageOpportunity {
	cheapest := c.CheapestMarket()
	if cheapest == nil {
		return nil
	}

	shipping := cheapest.ShippingToHome
	if shipping == 0 {
		shipping = defaultImportShipping
	}
	landed := cheapest.EURPrice + shipping
	if extraBloc[cheapest.Country] {
		if landed > dutyFreeThreshold {
			landed *= importVATDutyLoading
		} else {
			landed *= importVATLoading
		}
	}
	customs := landed - cheapest.EURPrice - shipping

	margin := sellPrice - landed
	var marginPct float64
	if landed > 0 {
		marginPct = margin / landed * 100
	}

	return &models.ArbitrageOpportunity{
		Direction:     "import",
		SourceCountry: cheapest.CountryName,
		TargetCountry: markets[Home].Name,
		BuyPrice:      cheapest.EURPrice,
		SellPrice:     sellPrice,
		Shipping:      shipping,
		Customs:       customs,
		LandedCost:    landed,
		NetRevenue:    sellPrice,
		Margin:        margin,
		MarginPct:     marginPct,
		Profitable:    marginPct > importProfitThresholdPct,
	}
}

// ExportOpportunity computes the economics of buying at home for buyPrice and
// selling in the dearest foreign market, net of marketplace fees and outbound
// shipping. The profitability bar is higher than for imports, reflecting the
// added risk of selling abroad. Returns nil when no foreign market was sampled.
func ExportOpportunity(c *models.InternationalComparison, buyPrice float64) *models.ArbitrageOpportunity {
	dearest := c.DearestMarket(Home)
	if dearest == nil {
		return nil
	}

	shipping := 12.0
	if dearest.Country == "US" || dearest.Country == "JP" {
		shipping = 20.0
	}
	fees := dearest.EURPrice * marketplaceFeeRate
	net := dearest.EURPrice*(1-marketplaceFeeRate) - shipping

	margin := net - buyPrice
	var marginPct float64
	if buyPrice > 0 {
		marginPct = margin / buyPrice * 100
	}

	return &models.ArbitrageOpportunity{
		Direction:     "export",
		SourceCountry: markets[Home].Name,
		TargetCountry: dearest.CountryName,
		BuyPrice:      buyPrice,
		SellPrice:     dearest.EURPrice,
		Shipping:      shipping,
		Fees:          fees,
		NetRevenue:    net,
		Margin:        margin,
		MarginPct:     marginPct,
		Profitable:    marginPct > exportProfitThresholdPct,
	}
}
