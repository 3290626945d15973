package models

// InternationalPriceSample is one country's averaged sold price for a query.
// EURPrice is LocalPrice converted at the static per-country rate in effect
// when the sample was taken.
type InternationalPriceSample struct {
	Country        string
	CountryName    string
	Currency       string
	LocalPrice     float64
	EURPrice       float64
	ShippingToHome float64
	Condition      Condition
	Title          string
	URL            string
}

// InternationalComparison holds the per-country samples gathered for one
// query. HomeSample points into Samples when the home market responded.
type InternationalComparison struct {
	Query      string
	Samples    []InternationalPriceSample
	HomeSample *InternationalPriceSample
}

// CheapestMarket returns the sample with the lowest landed price
// (EUR price plus shipping to the home market), or nil when empty.
func (c *InternationalComparison) CheapestMarket() *InternationalPriceSample {
	var best *InternationalPriceSample
	for i := range c.Samples {
		s := &c.Samples[i]
		if best == nil || s.EURPrice+s.ShippingToHome < best.EURPrice+best.ShippingToHome {
			best = s
		}
	}
	return best
}

// DearestMarket returns the non-home sample with the highest EUR price,
// or nil when no foreign market responded.
func (c *InternationalComparison) DearestMarket(homeCountry string) *InternationalPriceSample {
	var best *InternationalPriceSample
	for i := range c.Samples {
		s := &c.Samples[i]
		if s.Country == homeCountry {
			continue
		}
		if best == nil || s.EURPrice > best.EURPrice {
			best = s
		}
	}
	return best
}

// ArbitrageOpportunity is the derived economics of moving one item between a
// foreign market and the home market. Computed on demand, never stored.
type ArbitrageOpportunity struct {
	// Direction is "import" (buy abroad, sell at home) or "export".
	Direction string

	SourceCountry string
	TargetCountry string

	BuyPrice   float64
	SellPrice  float64
	Shipping   float64
	Customs    float64
	Fees       float64
	LandedCost float64
	NetRevenue float64

	Margin     float64
	MarginPct  float64
	Profitable bool
}
