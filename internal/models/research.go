package models

import "time"

// PriceStats summarizes one observation group. A zero Count means the group
// produced no data and the other fields are meaningless.
type PriceStats struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Stats computes summary statistics over a list of observations. Computed on
// demand, never stored alongside the raw observations.
func Stats(obs []PriceObservation) PriceStats {
	if len(obs) == 0 {
		return PriceStats{}
	}
	s := PriceStats{Count: len(obs), Min: obs[0].Price, Max: obs[0].Price}
	var sum float64
	for _, o := range obs {
		sum += o.Price
		if o.Price < s.Min {
			s.Min = o.Price
		}
		if o.Price > s.Max {
			s.Max = o.Price
		}
	}
	s.Mean = sum / float64(len(obs))
	return s
}

// CatalogTiers carries the up-to-three price tiers (loose, complete-in-box,
// new sealed) a specialty catalog quotes for one product. Tier pointers are
// nil when the catalog has no quote for that tier. Native prices are USD;
// EUR values are converted at a fixed rate at extraction time.
type CatalogTiers struct {
	ProductID   string
	ProductName string
	Console     string

	LoosePrice *float64
	CIBPrice   *float64
	NewPrice   *float64

	LooseEUR *float64
	CIBEUR   *float64
	NewEUR   *float64

	URL string
}

// CatalogResult is the outcome of a specialty catalog search.
type CatalogResult struct {
	Query    string
	Products []CatalogTiers
}

// BestMatch returns the most relevant catalog product, or nil when empty.
func (r *CatalogResult) BestMatch() *CatalogTiers {
	if len(r.Products) == 0 {
		return nil
	}
	return &r.Products[0]
}

// MarketResearch is the aggregate produced by one research call: observation
// lists grouped by source category, plus the optional catalog and
// international results. Created fresh per call and immutable once returned;
// persistence is a caller concern.
type MarketResearch struct {
	Query string

	EbaySold       []PriceObservation
	EbayActive     []PriceObservation
	Amazon         []PriceObservation
	GoogleShopping []PriceObservation

	Catalog       *CatalogResult
	International *InternationalComparison
}

// SoldStats returns summary statistics for the sold-listings group.
func (r *MarketResearch) SoldStats() PriceStats { return Stats(r.EbaySold) }

// ActiveStats returns summary statistics for the active-listings group.
func (r *MarketResearch) ActiveStats() PriceStats { return Stats(r.EbayActive) }

// AmazonStats returns summary statistics for the general-merchandise group.
func (r *MarketResearch) AmazonStats() PriceStats { return Stats(r.Amazon) }

// GoogleStats returns summary statistics for the shopping-aggregator group.
func (r *MarketResearch) GoogleStats() PriceStats { return Stats(r.GoogleShopping) }

// Empty reports whether no source produced any market signal. An empty
// research is not an error: downstream consumers fall back to the model's
// own prior knowledge.
func (r *MarketResearch) Empty() bool {
	return len(r.EbaySold) == 0 &&
		len(r.EbayActive) == 0 &&
		len(r.Amazon) == 0 &&
		len(r.GoogleShopping) == 0 &&
		(r.Catalog == nil || len(r.Catalog.Products) == 0) &&
		(r.International == nil || len(r.International.Samples) == 0)
}

// ObservationCount returns the total number of observations across groups.
func (r *MarketResearch) ObservationCount() int {
	return len(r.EbaySold) + len(r.EbayActive) + len(r.Amazon) + len(r.GoogleShopping)
}

// ResearchRun is the archival record of one research call, written by the
// storage layer after the engine returns.
type ResearchRun struct {
	ID           string
	Query        string
	Observations int
	SoldCount    int
	ActiveCount  int
	AmazonCount  int
	GoogleCount  int
	CatalogCount int
	StartedAt    time.Time
	Elapsed      time.Duration
}
