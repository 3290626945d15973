// Package pricecharting extracts tiered pricing (loose, complete-in-box,
// new sealed) from a specialty gaming/collectible catalog. The catalog only
// covers a narrow vocabulary of products, so callers gate on IsApplicable
// before paying for a search.
package pricecharting

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

// usdToEUR is the fixed conversion applied to the catalog's native USD
// quotes. Static on purpose: a live FX fetch in the research hot path would
// add a dependency the original design deliberately avoids.
const usdToEUR = 0.92

const maxProducts = 5

// gamingKeywords is the fixed applicability vocabulary. Matching is
// case-insensitive substring membership against the listing title.
var gamingKeywords = []string{
	"nintendo", "switch", "playstation", "ps5", "ps4", "ps3", "ps2", "ps1",
	"xbox", "game", "gioco", "videogioco", "console", "controller",
	"gameboy", "game boy", "ds", "3ds", "wii", "gamecube", "n64",
	"sega", "mega drive", "dreamcast", "saturn", "atari",
	"amiibo", "pokemon", "zelda", "mario", "sonic",
	"retro", "vintage", "lego", "set lego",
}

var (
	titleCellRe = regexp.MustCompile(`(?s)class="title"[^>]*>.*?<a[^>]*href="([^"]+)"[^>]*>([^<]+)<`)
	priceCellRe = regexp.MustCompile(`js-price[^>]*>([^<]+)<`)
)

// IsApplicable reports whether a listing title belongs to the catalog's
// gaming/collectible domain.
func IsApplicable(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range gamingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Catalog searches the pricing catalog through the fetch capability.
type Catalog struct {
	fetcher fetch.Fetcher
	baseURL string
}

// New creates a Catalog adapter.
func New(f fetch.Fetcher) *Catalog {
	return &Catalog{fetcher: f, baseURL: "https://www.pricecharting.com"}
}

// Search queries the catalog and parses up to five matching products with
// their price tiers. A row that fails to parse is skipped, never fatal.
func (c *Catalog) Search(ctx context.Context, query string) (*models.CatalogResult, error) {
	u := fmt.Sprintf("%s/search-products?q=%s&type=videogames",
		c.baseURL, strings.ReplaceAll(strings.TrimSpace(query), " ", "+"))
	doc, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch: %w", err)
	}

	result := &models.CatalogResult{Query: query}
	for _, row := range tableRows(doc) {
		if len(result.Products) >= maxProducts {
			break
		}
		p, ok := parseRow(row)
		if !ok {
			continue
		}
		result.Products = append(result.Products, p)
	}

	logger.Info("Catalog: found %d products for %q", len(result.Products), query)
	return result, nil
}

// tableRows returns the <tr> chunks of the games table, header excluded.
func tableRows(doc string) []string {
	_, table, found := strings.Cut(doc, `id="games_table"`)
	if !found {
		return nil
	}
	if end := strings.Index(table, "</table>"); end >= 0 {
		table = table[:end]
	}
	rows := strings.Split(table, "<tr")
	if len(rows) <= 1 {
		return nil
	}
	var out []string
	for _, row := range rows[1:] {
		if strings.Contains(row, "<th") {
			continue
		}
		out = append(out, row)
	}
	return out
}

func parseRow(row string) (models.CatalogTiers, bool) {
	m := titleCellRe.FindStringSubmatch(row)
	if m == nil {
		return models.CatalogTiers{}, false
	}
	productURL, name := m[1], strings.TrimSpace(m[2])

	p := models.CatalogTiers{
		ProductID:   productID(productURL),
		ProductName: name,
		Console:     consoleName(productURL),
		URL:         absoluteURL(productURL),
	}

	cells := priceCellRe.FindAllStringSubmatch(row, 3)
	for i, cell := range cells {
		v, err := price.Parse(cell[1])
		if err != nil || v <= 0 {
			continue
		}
		usd := v
		eur := v * usdToEUR
		switch i {
		case 0:
			p.LoosePrice, p.LooseEUR = &usd, &eur
		case 1:
			p.CIBPrice, p.CIBEUR = &usd, &eur
		case 2:
			p.NewPrice, p.NewEUR = &usd, &eur
		}
	}

	return p, true
}

func productID(productURL string) string {
	parts := strings.Split(strings.Trim(productURL, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// consoleName recovers the console from the /game/<console>/<title> path.
func consoleName(productURL string) string {
	_, rest, found := strings.Cut(productURL, "/game/")
	if !found {
		return ""
	}
	segment, _, _ := strings.Cut(rest, "/")
	words := strings.Split(segment, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func absoluteURL(productURL string) string {
	if strings.HasPrefix(productURL, "http") {
		return productURL
	}
	return "https://www.pricecharting.com" + productURL
}
