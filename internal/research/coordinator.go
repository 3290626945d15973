// Package research coordinates the concurrent fan-out over all price sources
// and assembles their results into a single MarketResearch aggregate. Each
// source runs in its own failure domain: an error, timeout, or panic in one
// source costs that source's group and nothing else.
package research

import (
	"context"
	"sync"
	"time"

	"pricesight/internal/logger"
	"pricesight/internal/models"
	"pricesight/internal/pricecharting"
	"pricesight/internal/scrape"
)

// MarketAPI is the authenticated marketplace client capability.
type MarketAPI interface {
	MarketData(ctx context.Context, query string) ([]models.PriceObservation, error)
}

// CatalogSearcher is the specialty catalog capability.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) (*models.CatalogResult, error)
}

// Comparer is the international market comparison capability.
type Comparer interface {
	Compare(ctx context.Context, query string, countries []string, condition models.Condition) *models.InternationalComparison
}

// Deps are the source capabilities a Researcher fans out over. Any of them
// may be nil; a nil source simply contributes nothing.
type Deps struct {
	API MarketAPI
	// Active is the scraped active-listings backup, used only when the API
	// contributes no active observations.
	Active  scrape.Adapter
	Sold    scrape.Adapter
	Amazon  scrape.Adapter
	Google  scrape.Adapter
	Catalog CatalogSearcher
	Intl    Comparer
}

// Options tune the fan-out behavior.
type Options struct {
	// SourceTimeout bounds each individual source. Zero means no per-source
	// deadline beyond the caller's context.
	SourceTimeout time.Duration
	// Timeout bounds the whole research call. Zero disables it.
	Timeout time.Duration
	// Countries for international comparison; defaults applied downstream.
	Countries []string
}

// Researcher runs market research across all configured sources.
type Researcher struct {
	deps Deps
	opts Options
}

// New creates a Researcher.
func New(deps Deps, opts Options) *Researcher {
	return &Researcher{deps: deps, opts: opts}
}

// Research builds the search query and fans out over the configured sources
// concurrently. Sources that fail are logged and contribute an empty group;
// the aggregate is always returned. The specialty catalog is only consulted
// for titles within its domain.
func (r *Researcher) Research(ctx context.Context, productName, brand, model string) *models.MarketResearch {
	query := BuildQuery(productName, brand, model)
	logger.Info("Research: starting for %q", query)
	start := time.Now()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	result := &models.MarketResearch{Query: query}
	var wg sync.WaitGroup

	var scrapedActive []models.PriceObservation
	r.spawn(ctx, &wg, "ebay_api", r.deps.API != nil, func(ctx context.Context) error {
		obs, err := r.deps.API.MarketData(ctx, query)
		result.EbayActive = obs
		return err
	})
	r.spawn(ctx, &wg, "ebay_active", r.deps.Active != nil, func(ctx context.Context) error {
		obs, err := r.deps.Active.Search(ctx, query)
		scrapedActive = obs
		return err
	})
	r.spawn(ctx, &wg, "ebay_sold", r.deps.Sold != nil, func(ctx context.Context) error {
		obs, err := r.deps.Sold.Search(ctx, query)
		result.EbaySold = obs
		return err
	})
	r.spawn(ctx, &wg, "amazon", r.deps.Amazon != nil, func(ctx context.Context) error {
		obs, err := r.deps.Amazon.Search(ctx, query)
		result.Amazon = obs
		return err
	})
	r.spawn(ctx, &wg, "google_shopping", r.deps.Google != nil, func(ctx context.Context) error {
		obs, err := r.deps.Google.Search(ctx, query)
		result.GoogleShopping = obs
		return err
	})

	if r.deps.Catalog != nil && pricecharting.IsApplicable(productName) {
		logger.Info("Research: catalog domain detected for %q", productName)
		r.spawn(ctx, &wg, "catalog", true, func(ctx context.Context) error {
			cat, err := r.deps.Catalog.Search(ctx, query)
			result.Catalog = cat
			return err
		})
	}

	wg.Wait()
	if len(result.EbayActive) == 0 && len(scrapedActive) > 0 {
		logger.Info("Research: active group falling back to scraped listings (%d)", len(scrapedActive))
		result.EbayActive = scrapedActive
	}
	logger.Info("Research: %d observations for %q in %s",
		result.ObservationCount(), query, time.Since(start).Round(time.Millisecond))
	return result
}

// ResearchInternational samples the configured international markets for the
// product. Kept separate from Research: it multiplies fetch volume per call
// and most decisions do not need it.
func (r *Researcher) ResearchInternational(ctx context.Context, productName string) *models.InternationalComparison {
	if r.deps.Intl == nil {
		return &models.InternationalComparison{Query: BuildQuery(productName, "", "")}
	}
	query := BuildQuery(productName, "", "")
	return r.deps.Intl.Compare(ctx, query, r.opts.Countries, models.ConditionUsed)
}

// spawn runs one source in its own goroutine with a per-source deadline and
// panic isolation. The fn writes its own result field, so no result locking
// is needed beyond the WaitGroup barrier.
func (r *Researcher) spawn(ctx context.Context, wg *sync.WaitGroup, name string, enabled bool, fn func(ctx context.Context) error) {
	if !enabled {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Research: %s panicked: %v", name, rec)
			}
		}()

		srcCtx := ctx
		if r.opts.SourceTimeout > 0 {
			var cancel context.CancelFunc
			srcCtx, cancel = context.WithTimeout(ctx, r.opts.SourceTimeout)
			defer cancel()
		}

		if err := fn(srcCtx); err != nil {
			logger.Warn("Research: %s failed: %v", name, err)
		}
	}()
}
