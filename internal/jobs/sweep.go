package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/config"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/parser"
)

// Sweep cheaply refreshes price and activity of already-known listings
// from overview data alone; it never fetches detail pages and never
// creates listings. Division of labour with Discovery is intentional:
// a listing Discovery has not created is invisible to Sweep.
type Sweep struct {
	deps Deps
}

// NewSweep creates the sweep job.
func NewSweep(deps Deps) *Sweep {
	return &Sweep{deps: deps.withDefaults()}
}

// sweepMetrics accumulates the run counters.
type sweepMetrics struct {
	pagesVisited         int
	pagesFetched         int
	listingsUpdated      int
	priceRowsInserted    int
	priceChangesDetected int
}

// runMetrics converts the counters for checkpointing.
func (m *sweepMetrics) runMetrics(page int) domain.RunMetrics {
	return domain.RunMetrics{
		PagesVisited:         intPtr(m.pagesVisited),
		PagesFetched:         intPtr(m.pagesFetched),
		ListingsUpdated:      intPtr(m.listingsUpdated),
		PriceHistoryInserted: intPtr(m.priceRowsInserted),
		PriceChangesDetected: intPtr(m.priceChangesDetected),
		LastOverviewPage:     intPtr(page),
	}
}

// Run executes one sweep pass.
func (j *Sweep) Run(ctx context.Context) error {
	run, err := j.deps.Runs.StartRun(ctx, domain.RunTypeSweep)
	if err != nil {
		return fmt.Errorf("start sweep run: %w", err)
	}

	log := j.deps.Log.WithRun(domain.RunTypeSweep, run.ID)

	lastRun, lastErr := j.deps.Runs.LastRunOfType(ctx, domain.RunTypeSweep)
	if lastErr != nil {
		return j.deps.finishError(ctx, run, log, fmt.Errorf("look up last sweep run: %w", lastErr))
	}

	startPage := sweepStartPage(lastRun, j.deps.Now(), j.deps.Crawler)
	log.Info("sweep started", "start_page", startPage)

	metrics := &sweepMetrics{}

	if crawlErr := j.crawl(ctx, run, startPage, metrics, log); crawlErr != nil {
		log.Error("sweep failed", "error", crawlErr)
		return j.deps.finishError(ctx, run, log, crawlErr)
	}

	j.deps.finishSuccess(ctx, run, log)
	log.Info("sweep finished",
		"pages_visited", metrics.pagesVisited,
		"listings_updated", metrics.listingsUpdated,
		"price_changes", metrics.priceChangesDetected,
	)

	return nil
}

// sweepStartPage computes the page a sweep resumes from. With no prior
// successful run, or one older than the full-resweep window, it starts
// at page 1; otherwise it backs off a small overlap window from the
// last checkpointed page, never below 1.
func sweepStartPage(last *domain.ScrapeRun, now time.Time, cfg config.Crawler) int {
	if last == nil || now.Sub(last.StartedAt) > cfg.SweepFullAfter {
		return 1
	}
	if last.LastOverviewPage == nil {
		return 1
	}

	start := *last.LastOverviewPage - cfg.SweepResumeOverlap
	if start < 1 {
		return 1
	}
	return start
}

// crawl walks overview pages from startPage to the page cap or the
// first empty page.
func (j *Sweep) crawl(
	ctx context.Context,
	run *domain.ScrapeRun,
	startPage int,
	metrics *sweepMetrics,
	log logger.Interface,
) error {
	for page := startPage; page <= j.deps.Crawler.SweepMaxPages; page++ {
		html, fetchErr := j.deps.Fetcher.Fetch(ctx, j.deps.overviewURL(page))
		if fetchErr != nil {
			return fmt.Errorf("fetch overview page %d: %w", page, fetchErr)
		}
		metrics.pagesFetched++

		items := parser.ParseOverview(html)
		metrics.pagesVisited++
		if len(items) == 0 {
			log.Info("overview exhausted", "page", page)
			break
		}

		if pageErr := j.processPage(ctx, page, items, metrics, log); pageErr != nil {
			return pageErr
		}

		j.deps.checkpoint(ctx, run.ID, metrics.runMetrics(page), log)
	}

	return nil
}

// processPage refreshes every matched listing on one overview page.
// Items with no existing row, or no finite price, are skipped.
func (j *Sweep) processPage(
	ctx context.Context,
	page int,
	items []parser.OverviewItem,
	metrics *sweepMetrics,
	log logger.Interface,
) error {
	externalIDs := make([]string, 0, len(items))
	for _, item := range items {
		externalIDs = append(externalIDs, item.ID)
	}

	existing, lookupErr := j.deps.Listings.ByExternalIDs(ctx, j.deps.Crawler.Platform, externalIDs)
	if lookupErr != nil {
		return fmt.Errorf("look up page %d listings: %w", page, lookupErr)
	}

	now := j.deps.Now().UTC()
	batch := database.NewBatch()
	matched := 0

	for _, item := range items {
		known, ok := existing[item.ID]
		if !ok || item.Price == nil {
			continue
		}

		price := *item.Price
		batch.SweepUpdate(known.ID, price, now)
		batch.AppendPriceHistoryByID(known.ID, price, now)
		matched++
		metrics.listingsUpdated++
		metrics.priceRowsInserted++

		if price != known.Price {
			metrics.priceChangesDetected++
		}
	}

	if applyErr := j.deps.Writer.Apply(ctx, batch); applyErr != nil {
		return fmt.Errorf("persist page %d: %w", page, applyErr)
	}

	log.Info("page swept", "page", page, "matched", matched)

	return nil
}
