package intl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"pricesight/internal/models"
)

// marketFetcher serves a canned document per storefront domain.
type marketFetcher struct {
	mu   sync.Mutex
	docs map[string]string // domain substring -> document
	urls []string
}

func (f *marketFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()
	for domain, doc := range f.docs {
		if strings.Contains(rawURL, domain) {
			return doc, nil
		}
	}
	return "", errors.New("no document for " + rawURL)
}

func soldDoc(prices ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range prices {
		fmt.Fprintf(&b, `<div class="s-item"><span class="s-item__price">%s</span></div>`, p)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestCompareAveragesAndConverts(t *testing.T) {
	f := &marketFetcher{docs: map[string]string{
		"ebay.it":    soldDoc("€100,00", "€200,00"),
		"ebay.com":   soldDoc("$100.00", "$150.00"),
		"ebay.co.uk": soldDoc("£100.00"),
	}}
	c := NewComparator(f)

	cmp := c.Compare(context.Background(), "gameboy color", []string{"IT", "US", "UK"}, models.ConditionUsed)
	if len(cmp.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(cmp.Samples))
	}

	byCountry := map[string]models.InternationalPriceSample{}
	for _, s := range cmp.Samples {
		byCountry[s.Country] = s
	}

	it := byCountry["IT"]
	if it.LocalPrice != 150 || it.EURPrice != 150 {
		t.Errorf("IT sample = %+v, want local/eur 150", it)
	}
	us := byCountry["US"]
	if us.LocalPrice != 125 || math.Abs(us.EURPrice-115) > 1e-9 {
		t.Errorf("US sample = %+v, want local 125 eur 115", us)
	}
	uk := byCountry["UK"]
	if math.Abs(uk.EURPrice-117) > 1e-9 {
		t.Errorf("UK eur = %v, want 117", uk.EURPrice)
	}

	if cmp.HomeSample == nil || cmp.HomeSample.Country != "IT" {
		t.Errorf("home sample = %+v, want IT", cmp.HomeSample)
	}
}

func TestCompareSkipsFailingMarket(t *testing.T) {
	f := &marketFetcher{docs: map[string]string{
		"ebay.it": soldDoc("€80,00"),
		// ebay.de intentionally absent: the fetch fails
	}}
	c := NewComparator(f)

	cmp := c.Compare(context.Background(), "radio", []string{"IT", "DE"}, models.ConditionUsed)
	if len(cmp.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(cmp.Samples))
	}
	if cmp.Samples[0].Country != "IT" {
		t.Errorf("surviving sample = %q, want IT", cmp.Samples[0].Country)
	}
}

func TestMarketURL(t *testing.T) {
	jp := marketURL(markets["JP"], "JP", "famicom console", models.ConditionUsed)
	for _, want := range []string{"ebay.com", "_nkw=famicom+console", "LH_Sold=1", "LH_ItemCondition=3000", "LH_PrefLoc=2"} {
		if !strings.Contains(jp, want) {
			t.Errorf("JP url missing %q: %s", want, jp)
		}
	}

	de := marketURL(markets["DE"], "DE", "radio", models.ConditionNew)
	if !strings.Contains(de, "ebay.de") || !strings.Contains(de, "LH_ItemCondition=1000") {
		t.Errorf("DE url = %s", de)
	}
	if strings.Contains(de, "LH_PrefLoc") {
		t.Errorf("location filter leaked into DE url: %s", de)
	}
}

func sample(country string, eur, shipping float64) models.InternationalPriceSample {
	return models.InternationalPriceSample{
		Country:        country,
		CountryName:    markets[country].Name,
		Currency:       markets[country].Currency,
		EURPrice:       eur,
		ShippingToHome: shipping,
	}
}

func TestImportOpportunityBelowDutyThreshold(t *testing.T) {
	cmp := &models.InternationalComparison{
		Query:   "console",
		Samples: []models.InternationalPriceSample{sample("US", 120, 15)},
	}

	opp := ImportOpportunity(cmp, 200)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	// 120 + 15 = 135, under the duty-free threshold: VAT loading only.
	wantLanded := 135 * importVATLoading
	if math.Abs(opp.LandedCost-wantLanded) > 1e-9 {
		t.Errorf("landed = %v, want %v", opp.LandedCost, wantLanded)
	}
	wantPct := (200 - wantLanded) / wantLanded * 100
	if math.Abs(opp.MarginPct-wantPct) > 1e-9 {
		t.Errorf("margin pct = %v, want %v", opp.MarginPct, wantPct)
	}
	if !opp.Profitable {
		t.Errorf("expected profitable at %.1f%%", opp.MarginPct)
	}
	if opp.Direction != "import" || opp.SourceCountry != "USA" {
		t.Errorf("opportunity = %+v", opp)
	}
}

func TestImportOpportunityAboveDutyThreshold(t *testing.T) {
	cmp := &models.InternationalComparison{
		Samples: []models.InternationalPriceSample{sample("JP", 200, 35)},
	}

	opp := ImportOpportunity(cmp, 300)
	wantLanded := 235 * importVATDutyLoading
	if math.Abs(opp.LandedCost-wantLanded) > 1e-9 {
		t.Errorf("landed = %v, want %v", opp.LandedCost, wantLanded)
	}
	if opp.Customs <= 0 {
		t.Errorf("customs = %v, want positive loading", opp.Customs)
	}
	if opp.Profitable {
		t.Errorf("margin %.1f%% should not clear the bar", opp.MarginPct)
	}
}

func TestImportOpportunityIntraBloc(t *testing.T) {
	cmp := &models.InternationalComparison{
		Samples: []models.InternationalPriceSample{sample("DE", 100, 10)},
	}

	opp := ImportOpportunity(cmp, 160)
	if opp.LandedCost != 110 {
		t.Errorf("landed = %v, want 110 with no customs loading", opp.LandedCost)
	}
	if opp.Customs != 0 {
		t.Errorf("customs = %v, want 0", opp.Customs)
	}
	if !opp.Profitable {
		t.Errorf("margin %.1f%% should clear the bar", opp.MarginPct)
	}
}

func TestImportOpportunityDefaultsShipping(t *testing.T) {
	cmp := &models.InternationalComparison{
		Samples: []models.InternationalPriceSample{sample("IT", 100, 0)},
	}
	opp := ImportOpportunity(cmp, 200)
	if opp.Shipping != defaultImportShipping {
		t.Errorf("shipping = %v, want default %v", opp.Shipping, defaultImportShipping)
	}
}

func TestImportOpportunityEmpty(t *testing.T) {
	if opp := ImportOpportunity(&models.InternationalComparison{}, 100); opp != nil {
		t.Errorf("expected nil, got %+v", opp)
	}
}

func TestExportOpportunity(t *testing.T) {
	cmp := &models.InternationalComparison{
		Samples: []models.InternationalPriceSample{
			sample("IT", 100, 0),
			sample("US", 200, 25),
			sample("DE", 150, 10),
		},
	}

	opp := ExportOpportunity(cmp, 100)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if opp.TargetCountry != "USA" {
		t.Errorf("target = %q, want the dearest foreign market", opp.TargetCountry)
	}
	if opp.Shipping != 20 {
		t.Errorf("shipping = %v, want 20 for US", opp.Shipping)
	}
	wantNet := 200*(1-marketplaceFeeRate) - 20
	if math.Abs(opp.NetRevenue-wantNet) > 1e-9 {
		t.Errorf("net = %v, want %v", opp.NetRevenue, wantNet)
	}
	wantPct := (wantNet - 100) / 100 * 100
	if math.Abs(opp.MarginPct-wantPct) > 1e-9 {
		t.Errorf("margin pct = %v, want %v", opp.MarginPct, wantPct)
	}
	if !opp.Profitable {
		t.Errorf("margin %.1f%% should clear the export bar", opp.MarginPct)
	}
}

func TestExportOpportunityHomeOnly(t *testing.T) {
	cmp := &models.InternationalComparison{
		Samples: []models.InternationalPriceSample{sample("IT", 100, 0)},
	}
	if opp := ExportOpportunity(cmp, 50); opp != nil {
		t.Errorf("expected nil with no foreign samples, got %+v", opp)
	}
}
