package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// SellerRepository handles database operations for sellers.
type SellerRepository struct {
	db  *sqlx.DB
	log logger.Interface
}

// NewSellerRepository creates a new seller repository.
func NewSellerRepository(db *sqlx.DB, log logger.Interface) *SellerRepository {
	return &SellerRepository{db: db, log: log}
}

// Upsert inserts unknown sellers and conservatively updates known ones:
// a field already set on the stored row is never overwritten, only
// last_seen_at and updated_at always move forward. Row ids, generated
// or pre-existing, are written back into the passed structs so callers
// can reference sellers from the same page's listing batch.
func (r *SellerRepository) Upsert(ctx context.Context, sellers []*domain.Seller) error {
	if len(sellers) == 0 {
		return nil
	}

	query := `
		INSERT INTO sellers (
			id, platform, platform_seller_id,
			name, is_private, is_verified, registered_at, location,
			active_ad_count, total_ad_count,
			org_name, org_address, org_phone, org_website,
			has_profile_image,
			first_seen_at, last_seen_at, updated_at
		)
		VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10,
			$11, $12, $13, $14,
			$15,
			$16, $17, $18
		)
		ON CONFLICT (platform, platform_seller_id) DO UPDATE SET
			name = COALESCE(sellers.name, EXCLUDED.name),
			registered_at = COALESCE(sellers.registered_at, EXCLUDED.registered_at),
			location = COALESCE(sellers.location, EXCLUDED.location),
			active_ad_count = COALESCE(EXCLUDED.active_ad_count, sellers.active_ad_count),
			total_ad_count = COALESCE(EXCLUDED.total_ad_count, sellers.total_ad_count),
			org_name = COALESCE(sellers.org_name, EXCLUDED.org_name),
			org_address = COALESCE(sellers.org_address, EXCLUDED.org_address),
			org_phone = COALESCE(sellers.org_phone, EXCLUDED.org_phone),
			org_website = COALESCE(sellers.org_website, EXCLUDED.org_website),
			has_profile_image = sellers.has_profile_image OR EXCLUDED.has_profile_image,
			last_seen_at = GREATEST(sellers.last_seen_at, EXCLUDED.last_seen_at),
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	return WithRetry(ctx, r.log, "upsert sellers", func() error {
		tx, beginErr := r.db.BeginTxx(ctx, nil)
		if beginErr != nil {
			return fmt.Errorf("begin seller upsert: %w", beginErr)
		}

		for _, s := range sellers {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}

			err := tx.QueryRowContext(
				ctx,
				query,
				s.ID, s.Platform, s.PlatformSellerID,
				s.Name, s.IsPrivate, s.IsVerified, s.RegisteredAt, s.Location,
				s.ActiveAdCount, s.TotalAdCount,
				s.OrgName, s.OrgAddress, s.OrgPhone, s.OrgWebsite,
				s.HasProfileImage,
				s.FirstSeenAt, s.LastSeenAt, s.UpdatedAt,
			).Scan(&s.ID)

			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to upsert seller %s/%s: %w", s.Platform, s.PlatformSellerID, err)
			}
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("commit seller upsert: %w", commitErr)
		}
		return nil
	})
}
