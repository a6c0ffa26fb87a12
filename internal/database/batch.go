package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// writeOp is a single typed write intent within a batch.
type writeOp interface {
	apply(ctx context.Context, tx *sqlx.Tx) error
}

// Batch collects the write intents for one page of results. All intents
// are applied in order inside a single transaction by a BatchWriter.
type Batch struct {
	ops []writeOp
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Len returns the number of queued write intents.
func (b *Batch) Len() int {
	return len(b.ops)
}

// TouchListings refreshes last_seen_at for previously known listings.
// last_seen_at never decreases.
func (b *Batch) TouchListings(ids []string, seenAt time.Time) {
	if len(ids) == 0 {
		return
	}
	b.ops = append(b.ops, &touchListingsOp{ids: ids, seenAt: seenAt})
}

// UpsertListing inserts a listing, or updates the existing row when its
// URL resurfaces. The generated row id is written back into the passed
// struct once the batch is applied.
func (b *Batch) UpsertListing(listing *domain.Listing) {
	b.ops = append(b.ops, &upsertListingOp{listing: listing})
}

// AppendPriceHistory records a price observation for a listing whose
// row id is resolved earlier in the same batch.
func (b *Batch) AppendPriceHistory(listing *domain.Listing, price float64, observedAt time.Time) {
	b.ops = append(b.ops, &priceHistoryOp{listing: listing, price: price, observedAt: observedAt})
}

// AppendPriceHistoryByID records a price observation for an already
// known listing row.
func (b *Batch) AppendPriceHistoryByID(listingID string, price float64, observedAt time.Time) {
	b.ops = append(b.ops, &priceHistoryOp{listingID: listingID, price: price, observedAt: observedAt})
}

// AppendSellerHistory records an active-ad-count snapshot for a seller
// whose row id has been resolved.
func (b *Batch) AppendSellerHistory(seller *domain.Seller, activeAdCount int, observedAt time.Time) {
	b.ops = append(b.ops, &sellerHistoryOp{seller: seller, count: activeAdCount, observedAt: observedAt})
}

// SweepUpdate refreshes price and activity of a known listing from
// overview data.
func (b *Batch) SweepUpdate(listingID string, price float64, seenAt time.Time) {
	b.ops = append(b.ops, &sweepUpdateOp{listingID: listingID, price: price, seenAt: seenAt})
}

// MarkVerified records a successful re-confirmation of a listing.
func (b *Batch) MarkVerified(listingID string, verifiedAt time.Time) {
	b.ops = append(b.ops, &markVerifiedOp{listingID: listingID, verifiedAt: verifiedAt})
}

// MarkNotFound records a failed re-confirmation: the not-found counter
// increments and the listing is deactivated.
func (b *Batch) MarkNotFound(listingID string, at time.Time) {
	b.ops = append(b.ops, &markNotFoundOp{listingID: listingID, at: at})
}

// BatchWriter applies batches atomically with contention retry.
type BatchWriter struct {
	db  *sqlx.DB
	log logger.Interface
}

// NewBatchWriter creates a new batch writer.
func NewBatchWriter(db *sqlx.DB, log logger.Interface) *BatchWriter {
	return &BatchWriter{db: db, log: log}
}

// Apply runs all of the batch's write intents inside one transaction.
// Transient lock errors retry the whole batch; other errors propagate.
func (w *BatchWriter) Apply(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	return WithRetry(ctx, w.log, "apply batch", func() error {
		tx, beginErr := w.db.BeginTxx(ctx, nil)
		if beginErr != nil {
			return fmt.Errorf("begin batch: %w", beginErr)
		}

		for _, op := range batch.ops {
			if opErr := op.apply(ctx, tx); opErr != nil {
				_ = tx.Rollback()
				return opErr
			}
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("commit batch: %w", commitErr)
		}
		return nil
	})
}

type touchListingsOp struct {
	ids    []string
	seenAt time.Time
}

func (op *touchListingsOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	query := `
		UPDATE listings
		SET last_seen_at = GREATEST(last_seen_at, $2)
		WHERE id = ANY($1)
	`

	if _, err := tx.ExecContext(ctx, query, pq.Array(op.ids), op.seenAt); err != nil {
		return fmt.Errorf("failed to touch listings: %w", err)
	}
	return nil
}

type upsertListingOp struct {
	listing *domain.Listing
}

func (op *upsertListingOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	l := op.listing
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	query := `
		INSERT INTO listings (
			id, title, price, area, room_count,
			postal_code, city, district, state,
			is_limited, duration_months,
			platform, url, external_id,
			region_id, seller_id,
			first_seen_at, last_seen_at, last_scraped_at,
			is_active, verification_status, not_found_count
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16,
			$17, $18, $19,
			$20, $21, $22
		)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			last_seen_at = GREATEST(listings.last_seen_at, EXCLUDED.last_seen_at),
			last_scraped_at = EXCLUDED.last_scraped_at,
			is_active = TRUE,
			deactivated_at = NULL,
			verification_status = EXCLUDED.verification_status,
			seller_id = COALESCE(listings.seller_id, EXCLUDED.seller_id),
			region_id = COALESCE(listings.region_id, EXCLUDED.region_id)
		RETURNING id
	`

	err := tx.QueryRowContext(
		ctx,
		query,
		l.ID, l.Title, l.Price, l.Area, l.RoomCount,
		l.PostalCode, l.City, l.District, l.State,
		l.IsLimited, l.DurationMonths,
		l.Platform, l.URL, l.ExternalID,
		l.RegionID, l.SellerID,
		l.FirstSeenAt, l.LastSeenAt, l.LastScrapedAt,
		l.IsActive, l.VerificationStatus, l.NotFoundCount,
	).Scan(&l.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert listing %s: %w", l.URL, err)
	}
	return nil
}

type priceHistoryOp struct {
	listing    *domain.Listing
	listingID  string
	price      float64
	observedAt time.Time
}

func (op *priceHistoryOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	listingID := op.listingID
	if op.listing != nil {
		listingID = op.listing.ID
	}

	query := `
		INSERT INTO price_history (id, listing_id, price, observed_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), listingID, op.price, op.observedAt); err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}
	return nil
}

type sellerHistoryOp struct {
	seller     *domain.Seller
	count      int
	observedAt time.Time
}

func (op *sellerHistoryOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	query := `
		INSERT INTO seller_history (id, seller_id, active_ad_count, observed_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), op.seller.ID, op.count, op.observedAt); err != nil {
		return fmt.Errorf("failed to append seller history: %w", err)
	}
	return nil
}

type sweepUpdateOp struct {
	listingID string
	price     float64
	seenAt    time.Time
}

func (op *sweepUpdateOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	query := `
		UPDATE listings
		SET price = $2,
		    last_seen_at = GREATEST(last_seen_at, $3),
		    last_scraped_at = $3,
		    is_active = TRUE
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, query, op.listingID, op.price, op.seenAt); err != nil {
		return fmt.Errorf("failed to sweep-update listing: %w", err)
	}
	return nil
}

type markVerifiedOp struct {
	listingID  string
	verifiedAt time.Time
}

func (op *markVerifiedOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	query := `
		UPDATE listings
		SET last_verified_at = $2,
		    last_seen_at = GREATEST(last_seen_at, $2),
		    verification_status = $3
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, query, op.listingID, op.verifiedAt, domain.VerificationActive); err != nil {
		return fmt.Errorf("failed to mark listing verified: %w", err)
	}
	return nil
}

type markNotFoundOp struct {
	listingID string
	at        time.Time
}

func (op *markNotFoundOp) apply(ctx context.Context, tx *sqlx.Tx) error {
	query := `
		UPDATE listings
		SET not_found_count = not_found_count + 1,
		    verification_status = $3,
		    is_active = FALSE,
		    deactivated_at = $2
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, query, op.listingID, op.at, domain.VerificationNotFound); err != nil {
		return fmt.Errorf("failed to mark listing not found: %w", err)
	}
	return nil
}
