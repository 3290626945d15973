package research

import (
	"fmt"
	"sort"
	"strings"

	"pricesight/internal/models"
)

var countryFlags = map[string]string{
	"IT": "🇮🇹", "US": "🇺🇸", "UK": "🇬🇧", "DE": "🇩🇪", "FR": "🇫🇷", "JP": "🇯🇵",
}

// PromptContext renders the research aggregate as the market-data section of
// a model prompt. Groups that produced no data are omitted; a fully empty
// research renders an explicit fallback line so the model knows to lean on
// its own priors.
func PromptContext(r *models.MarketResearch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DATI DI MERCATO per '%s':", r.Query)

	if len(r.EbaySold) > 0 {
		s := r.SoldStats()
		b.WriteString("\n\n📊 eBay VENDUTI (prezzi reali di vendita):")
		fmt.Fprintf(&b, "\n   - Media: €%.0f", s.Mean)
		fmt.Fprintf(&b, "\n   - Range: €%.0f - €%.0f", s.Min, s.Max)
		fmt.Fprintf(&b, "\n   - Campione: %d vendite recenti", s.Count)
	}

	if len(r.EbayActive) > 0 {
		s := r.ActiveStats()
		b.WriteString("\n\n📦 eBay ATTIVI (inserzioni correnti):")
		fmt.Fprintf(&b, "\n   - Media richiesta: €%.0f", s.Mean)
		fmt.Fprintf(&b, "\n   - %d inserzioni attive", s.Count)
	}

	if len(r.Amazon) > 0 {
		s := r.AmazonStats()
		b.WriteString("\n\n🛒 Amazon (prezzi nuovo):")
		fmt.Fprintf(&b, "\n   - Media: €%.0f", s.Mean)
		fmt.Fprintf(&b, "\n   - %d risultati", s.Count)
	}

	if len(r.GoogleShopping) > 0 {
		s := r.GoogleStats()
		b.WriteString("\n\n🔍 Google Shopping:")
		fmt.Fprintf(&b, "\n   - Prezzo più basso: €%.0f", s.Min)
		fmt.Fprintf(&b, "\n   - Media: €%.0f", s.Mean)
	}

	if r.Catalog != nil && len(r.Catalog.Products) > 0 {
		b.WriteString("\n")
		b.WriteString(catalogContext(r.Catalog))
	}

	if r.International != nil && len(r.International.Samples) > 0 {
		b.WriteString("\n")
		b.WriteString(internationalContext(r.International))
	}

	// Active-only data intentionally does not count: asking prices without a
	// sold baseline are not market evidence.
	hasSignal := len(r.EbaySold) > 0 || len(r.Amazon) > 0 || len(r.GoogleShopping) > 0 ||
		(r.Catalog != nil && len(r.Catalog.Products) > 0) ||
		(r.International != nil && len(r.International.Samples) > 0)
	if !hasSignal {
		b.WriteString("\n\n⚠️ Nessun dato di mercato trovato - usa la tua conoscenza")
	}

	return b.String()
}

func catalogContext(c *models.CatalogResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎮 PRICECHARTING (Gaming/Retro) per '%s':", c.Query)

	if best := c.BestMatch(); best != nil {
		fmt.Fprintf(&b, "\n\n   Prodotto: %s", best.ProductName)
		fmt.Fprintf(&b, "\n   Console: %s", best.Console)
		if best.LooseEUR != nil {
			fmt.Fprintf(&b, "\n   💿 Solo gioco (loose): €%.0f", *best.LooseEUR)
		}
		if best.CIBEUR != nil {
			fmt.Fprintf(&b, "\n   📦 Completo (CIB): €%.0f", *best.CIBEUR)
		}
		if best.NewEUR != nil {
			fmt.Fprintf(&b, "\n   🆕 Nuovo sigillato: €%.0f", *best.NewEUR)
		}
	}

	if len(c.Products) > 1 {
		fmt.Fprintf(&b, "\n\n   (%d prodotti simili trovati)", len(c.Products))
	}
	return b.String()
}

func internationalContext(c *models.InternationalComparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n🌍 CONFRONTO PREZZI INTERNAZIONALE per '%s':", c.Query)

	sorted := make([]models.InternationalPriceSample, len(c.Samples))
	copy(sorted, c.Samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EURPrice < sorted[j].EURPrice })
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	for _, s := range sorted {
		flag, ok := countryFlags[s.Country]
		if !ok {
			flag = "🌐"
		}
		shipping := ""
		if s.ShippingToHome > 0 {
			shipping = fmt.Sprintf(" (+€%.0f sped.)", s.ShippingToHome)
		}
		fmt.Fprintf(&b, "\n   %s %s: €%.0f%s", flag, s.CountryName, s.EURPrice, shipping)
	}

	if cheapest := c.CheapestMarket(); cheapest != nil && c.HomeSample != nil {
		if diff := c.HomeSample.EURPrice - cheapest.EURPrice; diff > 20 {
			fmt.Fprintf(&b, "\n\n   💡 IMPORT: Risparmio €%.0f comprando da %s", diff, cheapest.CountryName)
		}
	}
	return b.String()
}
