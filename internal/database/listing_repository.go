package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

// listingColumns is the column list shared by listing selects.
const listingColumns = `
	id, title, price, area, room_count,
	postal_code, city, district, state,
	is_limited, duration_months,
	platform, url, external_id,
	region_id, seller_id,
	first_seen_at, last_seen_at, last_scraped_at, last_verified_at, deactivated_at,
	is_active, verification_status, not_found_count
`

// ListingRepository handles database reads for listings. All writes go
// through the batch writer.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// ByExternalIDs bulk-looks up existing listings by their platform
// listing ids, keyed by external id in the result.
func (r *ListingRepository) ByExternalIDs(
	ctx context.Context,
	platform string,
	externalIDs []string,
) (map[string]*domain.Listing, error) {
	if len(externalIDs) == 0 {
		return map[string]*domain.Listing{}, nil
	}

	var listings []*domain.Listing
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE platform = $1 AND external_id = ANY($2)
	`

	err := r.db.SelectContext(ctx, &listings, query, platform, pq.Array(externalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to look up listings by external id: %w", err)
	}

	byExternalID := make(map[string]*domain.Listing, len(listings))
	for _, listing := range listings {
		byExternalID[listing.ExternalID] = listing
	}

	return byExternalID, nil
}

// StaleActive returns up to limit active listings whose last_seen_at is
// older than the cutoff, oldest first. Verification candidates.
func (r *ListingRepository) StaleActive(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE is_active = TRUE AND last_seen_at < $1
		ORDER BY last_seen_at ASC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &listings, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale listings: %w", err)
	}

	if listings == nil {
		listings = []*domain.Listing{}
	}

	return listings, nil
}

// MissingRegion returns listings with no region reference but enough
// location data to resolve one. Used by the location repair tooling.
func (r *ListingRepository) MissingRegion(ctx context.Context, limit int) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE region_id IS NULL AND state IS NOT NULL
		ORDER BY first_seen_at ASC
		LIMIT $1
	`

	err := r.db.SelectContext(ctx, &listings, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select listings missing a region: %w", err)
	}

	if listings == nil {
		listings = []*domain.Listing{}
	}

	return listings, nil
}

// SetRegion attaches a resolved region reference to a listing.
func (r *ListingRepository) SetRegion(ctx context.Context, listingID, regionID string) error {
	query := `UPDATE listings SET region_id = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, listingID, regionID)
	if err != nil {
		return fmt.Errorf("failed to set listing region: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("listing not found: %s", listingID)
	}

	return nil
}
