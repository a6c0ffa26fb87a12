// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Run types dispatched by the scheduler.
const (
	RunTypeDiscovery    = "discovery"
	RunTypeSweep        = "sweep"
	RunTypeVerification = "verification"
)

// Run states.
const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// RunMetrics holds the per-run counters. All fields are nullable so a
// partial update only touches the metrics a job actually reports.
type RunMetrics struct {
	PagesVisited         *int `db:"pages_visited"          json:"pages_visited,omitempty"`
	PagesFetched         *int `db:"pages_fetched"          json:"pages_fetched,omitempty"`
	ListingsDiscovered   *int `db:"listings_discovered"    json:"listings_discovered,omitempty"`
	ListingsUpdated      *int `db:"listings_updated"       json:"listings_updated,omitempty"`
	ListingsVerified     *int `db:"listings_verified"      json:"listings_verified,omitempty"`
	ListingsNotFound     *int `db:"listings_not_found"     json:"listings_not_found,omitempty"`
	PriceHistoryInserted *int `db:"price_history_inserted" json:"price_history_inserted,omitempty"`
	PriceChangesDetected *int `db:"price_changes_detected" json:"price_changes_detected,omitempty"`
	LastOverviewPage     *int `db:"last_overview_page"     json:"last_overview_page,omitempty"`
}

// ScrapeRun represents a single execution of one of the scrape jobs.
// A row is created with status running when the job starts, metrics are
// merged in incrementally, and the row is finalized exactly once to
// success or error.
type ScrapeRun struct {
	ID     string `db:"id"     json:"id"`
	Type   string `db:"type"   json:"type"`
	Status string `db:"status" json:"status"`

	StartedAt    time.Time  `db:"started_at"    json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"   json:"finished_at,omitempty"`
	DurationMs   *int64     `db:"duration_ms"   json:"duration_ms,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`

	RunMetrics
}
