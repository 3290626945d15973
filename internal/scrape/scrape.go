// Package scrape extracts price observations out of marketplace search
// pages. The pages carry no contract: extraction keys off structural class
// markers that the sites may change at any time, so every adapter is
// best-effort and a failed row only skips that row.
package scrape

import (
	"context"
	"fmt"
	"strings"

	"pricesight/internal/models"
)

// Adapter is one scraped price source.
type Adapter interface {
	Source() models.Source
	Search(ctx context.Context, query string) ([]models.PriceObservation, error)
}

// queryParam converts a free-text query into the plus-joined form the
// marketplaces use in their search URLs.
func queryParam(query string) string {
	return strings.ReplaceAll(strings.TrimSpace(query), " ", "+")
}

// itemChunks slices a document into per-listing chunks by a structural
// marker, dropping the preamble before the first occurrence. At most limit
// chunks are returned.
func itemChunks(doc, marker string, limit int) []string {
	parts := strings.Split(doc, marker)
	if len(parts) <= 1 {
		return nil
	}
	parts = parts[1:]
	if len(parts) > limit {
		parts = parts[:limit]
	}
	return parts
}

// dedupe drops observations that repeat an already-seen listing, keyed by
// URL when the source exposes one and by price otherwise.
func dedupe(obs []models.PriceObservation) []models.PriceObservation {
	seen := make(map[string]struct{}, len(obs))
	out := obs[:0]
	for _, o := range obs {
		key := o.URL
		if key == "" {
			key = fmt.Sprintf("%.2f", o.Price)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out
}
