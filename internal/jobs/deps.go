// Package jobs implements the three scheduled jobs of the ingestion
// pipeline: discovery, sweep, and verification. Each job runs to
// completion or failure within one invocation; all cross-run state
// lives in the scrape_runs table.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/config"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// Fetcher retrieves page HTML. All network access of the jobs goes
// through it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ListingStore provides the listing reads the jobs need.
type ListingStore interface {
	ByExternalIDs(ctx context.Context, platform string, externalIDs []string) (map[string]*domain.Listing, error)
	StaleActive(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Listing, error)
}

// SellerStore upserts sellers, resolving row ids into the passed
// structs.
type SellerStore interface {
	Upsert(ctx context.Context, sellers []*domain.Seller) error
}

// BatchApplier applies a page's write intents atomically.
type BatchApplier interface {
	Apply(ctx context.Context, batch *database.Batch) error
}

// RunTracker persists per-execution metadata and exposes the last-run
// lookup driving sweep resumption.
type RunTracker interface {
	StartRun(ctx context.Context, runType string) (*domain.ScrapeRun, error)
	UpdateMetrics(ctx context.Context, runID string, m domain.RunMetrics) error
	FinishRun(ctx context.Context, runID string, startedAt time.Time, status string, errorMessage *string) error
	LastRunOfType(ctx context.Context, runType string) (*domain.ScrapeRun, error)
}

// Deps bundles everything a job needs. Now is injectable so tests can
// pin the clock.
type Deps struct {
	Fetcher  Fetcher
	Listings ListingStore
	Sellers  SellerStore
	Writer   BatchApplier
	Runs     RunTracker
	Log      logger.Interface
	Crawler  config.Crawler
	Now      func() time.Time
}

// withDefaults fills optional fields.
func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logger.NewNoOp()
	}
	return d
}

// overviewURL formats the paginated overview URL.
func (d Deps) overviewURL(page int) string {
	return fmt.Sprintf(d.Crawler.OverviewURLTemplate, page)
}

// finishSuccess finalizes a run as success. Finalization failures are
// logged, not propagated: the job's work is already committed.
func (d Deps) finishSuccess(ctx context.Context, run *domain.ScrapeRun, log logger.Interface) {
	err := d.Runs.FinishRun(ctx, run.ID, run.StartedAt, domain.RunStatusSuccess, nil)
	if err != nil {
		log.Error("failed to finalize run", "error", err)
	}
}

// finishError finalizes a run as error, carrying the combined error
// message, and returns the original error.
func (d Deps) finishError(ctx context.Context, run *domain.ScrapeRun, log logger.Interface, runErr error) error {
	message := runErr.Error()

	err := d.Runs.FinishRun(ctx, run.ID, run.StartedAt, domain.RunStatusError, &message)
	if err != nil {
		log.Error("failed to finalize run", "error", err)
	}

	return runErr
}

// checkpoint merges partial metrics into the run row. A checkpoint
// failure does not abort the job; committed page results stay valid
// either way.
func (d Deps) checkpoint(ctx context.Context, runID string, m domain.RunMetrics, log logger.Interface) {
	if err := d.Runs.UpdateMetrics(ctx, runID, m); err != nil {
		log.Warn("failed to checkpoint run metrics", "error", err)
	}
}

// intPtr returns a pointer to n.
func intPtr(n int) *int {
	return &n
}

// strPtr returns a pointer to s, or nil when s is empty.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
