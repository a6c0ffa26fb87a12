package jobs

import (
	"context"
	"fmt"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/parser"
)

// Verification re-confirms the existence of stale active listings by
// re-fetching their detail pages, deactivating the ones no longer
// found. Verification failures are expected per item and never halt the
// batch; a transport error counts the same as not found.
type Verification struct {
	deps Deps
}

// NewVerification creates the verification job.
func NewVerification(deps Deps) *Verification {
	return &Verification{deps: deps.withDefaults()}
}

// verificationMetrics accumulates the run counters.
type verificationMetrics struct {
	pagesFetched     int
	listingsVerified int
	listingsNotFound int
}

// runMetrics converts the counters for checkpointing.
func (m *verificationMetrics) runMetrics() domain.RunMetrics {
	return domain.RunMetrics{
		PagesFetched:     intPtr(m.pagesFetched),
		ListingsVerified: intPtr(m.listingsVerified),
		ListingsNotFound: intPtr(m.listingsNotFound),
	}
}

// Run executes one verification pass.
func (j *Verification) Run(ctx context.Context) error {
	run, err := j.deps.Runs.StartRun(ctx, domain.RunTypeVerification)
	if err != nil {
		return fmt.Errorf("start verification run: %w", err)
	}

	log := j.deps.Log.WithRun(domain.RunTypeVerification, run.ID)

	cutoff := j.deps.Now().UTC().Add(-j.deps.Crawler.VerifyStaleAfter)

	candidates, selectErr := j.deps.Listings.StaleActive(ctx, cutoff, j.deps.Crawler.VerifyBatchSize)
	if selectErr != nil {
		return j.deps.finishError(ctx, run, log,
			fmt.Errorf("select verification candidates: %w", selectErr))
	}

	log.Info("verification started", "candidates", len(candidates))

	metrics := &verificationMetrics{}

	for _, listing := range candidates {
		if ctx.Err() != nil {
			return j.deps.finishError(ctx, run, log, ctx.Err())
		}

		if verifyErr := j.verifyOne(ctx, listing, metrics, log); verifyErr != nil {
			log.Error("verification failed", "error", verifyErr)
			return j.deps.finishError(ctx, run, log, verifyErr)
		}

		// Checkpoint per candidate; this job is the most fragile per item.
		j.deps.checkpoint(ctx, run.ID, metrics.runMetrics(), log)
	}

	j.deps.finishSuccess(ctx, run, log)
	log.Info("verification finished",
		"verified", metrics.listingsVerified,
		"not_found", metrics.listingsNotFound,
	)

	return nil
}

// verifyOne re-fetches one listing's detail page and records the
// outcome. Fetch and parse outcomes decide the transition; only
// persistence errors propagate.
func (j *Verification) verifyOne(
	ctx context.Context,
	listing *domain.Listing,
	metrics *verificationMetrics,
	log logger.Interface,
) error {
	var detail *parser.ListingDetail

	html, fetchErr := j.deps.Fetcher.Fetch(ctx, listing.URL)
	if fetchErr == nil {
		metrics.pagesFetched++
		detail = parser.ParseDetail(html, listing.URL)
	} else {
		log.Warn("verification fetch failed, treating as not found",
			"url", listing.URL,
			"error", fetchErr.Error(),
		)
	}

	now := j.deps.Now().UTC()
	batch := database.NewBatch()

	if detail == nil {
		batch.MarkNotFound(listing.ID, now)
		metrics.listingsNotFound++
		log.Info("listing no longer found",
			"url", listing.URL,
			"not_found_count", listing.NotFoundCount+1,
		)
	} else {
		batch.MarkVerified(listing.ID, now)
		metrics.listingsVerified++
	}

	if applyErr := j.deps.Writer.Apply(ctx, batch); applyErr != nil {
		return fmt.Errorf("persist verification of %s: %w", listing.URL, applyErr)
	}

	return nil
}
