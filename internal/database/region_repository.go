package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

// RegionRepository reads the curated region hierarchy. The table is
// maintained by external tooling; this pipeline only references it.
type RegionRepository struct {
	db *sqlx.DB
}

// NewRegionRepository creates a new region repository.
func NewRegionRepository(db *sqlx.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

// ListAll returns the full region table, used to build the location
// lookup index for batch repair.
func (r *RegionRepository) ListAll(ctx context.Context) ([]*domain.Region, error) {
	var regions []*domain.Region
	query := `
		SELECT id, name, slug, kind, parent_id
		FROM regions
		ORDER BY kind, name
	`

	err := r.db.SelectContext(ctx, &regions, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}

	if regions == nil {
		regions = []*domain.Region{}
	}

	return regions, nil
}

// BySlug returns the region row with the given slug, or nil when it
// does not exist.
func (r *RegionRepository) BySlug(ctx context.Context, slug string) (*domain.Region, error) {
	var regions []*domain.Region
	query := `
		SELECT id, name, slug, kind, parent_id
		FROM regions
		WHERE slug = $1
		LIMIT 1
	`

	err := r.db.SelectContext(ctx, &regions, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get region by slug: %w", err)
	}

	if len(regions) == 0 {
		return nil, nil
	}

	return regions[0], nil
}
