package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

// runColumns is the column list shared by scrape run selects.
const runColumns = `
	id, type, status,
	started_at, finished_at, duration_ms, error_message,
	pages_visited, pages_fetched,
	listings_discovered, listings_updated, listings_verified, listings_not_found,
	price_history_inserted, price_changes_detected, last_overview_page
`

// RunRepository persists per-job-execution metadata. It is the only
// cross-run state the jobs have: resumption cursors and last-run
// timestamps both live here.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// StartRun inserts a running-status row for a job execution and returns
// it.
func (r *RunRepository) StartRun(ctx context.Context, runType string) (*domain.ScrapeRun, error) {
	run := &domain.ScrapeRun{
		ID:        uuid.NewString(),
		Type:      runType,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO scrape_runs (id, type, status, started_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, run.ID, run.Type, run.Status, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	return run, nil
}

// UpdateMetrics merges the non-nil metric fields into the run row.
// Called after every page (and every verification candidate) so a crash
// mid-run leaves observable partial progress.
func (r *RunRepository) UpdateMetrics(ctx context.Context, runID string, m domain.RunMetrics) error {
	query := `
		UPDATE scrape_runs
		SET pages_visited = COALESCE($2, pages_visited),
		    pages_fetched = COALESCE($3, pages_fetched),
		    listings_discovered = COALESCE($4, listings_discovered),
		    listings_updated = COALESCE($5, listings_updated),
		    listings_verified = COALESCE($6, listings_verified),
		    listings_not_found = COALESCE($7, listings_not_found),
		    price_history_inserted = COALESCE($8, price_history_inserted),
		    price_changes_detected = COALESCE($9, price_changes_detected),
		    last_overview_page = COALESCE($10, last_overview_page)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		runID,
		m.PagesVisited,
		m.PagesFetched,
		m.ListingsDiscovered,
		m.ListingsUpdated,
		m.ListingsVerified,
		m.ListingsNotFound,
		m.PriceHistoryInserted,
		m.PriceChangesDetected,
		m.LastOverviewPage,
	)

	if err != nil {
		return fmt.Errorf("failed to update run metrics: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// FinishRun sets the terminal status, computed duration, and optional
// error text of a run. Called exactly once per job, from both the
// success and the failure path.
func (r *RunRepository) FinishRun(
	ctx context.Context,
	runID string,
	startedAt time.Time,
	status string,
	errorMessage *string,
) error {
	finishedAt := time.Now().UTC()
	durationMs := finishedAt.Sub(startedAt).Milliseconds()

	query := `
		UPDATE scrape_runs
		SET status = $2, finished_at = $3, duration_ms = $4, error_message = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, runID, status, finishedAt, durationMs, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// LastRunOfType returns the most recent successful run of the given
// type, or nil when none exists. Drives Sweep's resumption decision.
func (r *RunRepository) LastRunOfType(ctx context.Context, runType string) (*domain.ScrapeRun, error) {
	var run domain.ScrapeRun
	query := `
		SELECT ` + runColumns + `
		FROM scrape_runs
		WHERE type = $1 AND status = $2
		ORDER BY started_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &run, query, runType, domain.RunStatusSuccess)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	return &run, nil
}

// ListRecent returns the most recent runs across all types, newest
// first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*domain.ScrapeRun, error) {
	var runs []*domain.ScrapeRun
	query := `
		SELECT ` + runColumns + `
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	err := r.db.SelectContext(ctx, &runs, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	if runs == nil {
		runs = []*domain.ScrapeRun{}
	}

	return runs, nil
}
