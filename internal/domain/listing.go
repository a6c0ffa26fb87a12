// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Verification states of a listing.
const (
	VerificationActive   = "active"
	VerificationPending  = "pending_verification"
	VerificationNotFound = "not_found"
	VerificationInactive = "inactive"
)

// Listing represents one rental advert, keyed by its canonical URL.
// External ID is the marketplace's own identifier and is distinct from
// the row id.
type Listing struct {
	ID    string  `db:"id"    json:"id"`
	Title string  `db:"title" json:"title"`
	Price float64 `db:"price" json:"price"`

	// Optional structured attributes
	Area           *float64 `db:"area"            json:"area,omitempty"`
	RoomCount      *int     `db:"room_count"      json:"room_count,omitempty"`
	PostalCode     *string  `db:"postal_code"     json:"postal_code,omitempty"`
	City           *string  `db:"city"            json:"city,omitempty"`
	District       *string  `db:"district"        json:"district,omitempty"`
	State          *string  `db:"state"           json:"state,omitempty"`
	IsLimited      bool     `db:"is_limited"      json:"is_limited"`
	DurationMonths *int     `db:"duration_months" json:"duration_months,omitempty"`

	// Source identity
	Platform   string `db:"platform"    json:"platform"`
	URL        string `db:"url"         json:"url"`
	ExternalID string `db:"external_id" json:"external_id"`

	// References, resolved post-hoc
	RegionID *string `db:"region_id" json:"region_id,omitempty"`
	SellerID *string `db:"seller_id" json:"seller_id,omitempty"`

	// Lifecycle
	FirstSeenAt        time.Time  `db:"first_seen_at"       json:"first_seen_at"`
	LastSeenAt         time.Time  `db:"last_seen_at"        json:"last_seen_at"`
	LastScrapedAt      *time.Time `db:"last_scraped_at"     json:"last_scraped_at,omitempty"`
	LastVerifiedAt     *time.Time `db:"last_verified_at"    json:"last_verified_at,omitempty"`
	DeactivatedAt      *time.Time `db:"deactivated_at"      json:"deactivated_at,omitempty"`
	IsActive           bool       `db:"is_active"           json:"is_active"`
	VerificationStatus string     `db:"verification_status" json:"verification_status"`
	NotFoundCount      int        `db:"not_found_count"     json:"not_found_count"`
}

// PriceHistory is an append-only price observation for a listing.
type PriceHistory struct {
	ID         string    `db:"id"          json:"id"`
	ListingID  string    `db:"listing_id"  json:"listing_id"`
	Price      float64   `db:"price"       json:"price"`
	ObservedAt time.Time `db:"observed_at" json:"observed_at"`
}
