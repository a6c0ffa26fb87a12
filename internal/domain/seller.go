// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Seller is the aggregated identity of a marketplace seller, unique per
// (platform, platform_seller_id). Fields are filled conservatively: once
// a value is known it is never overwritten by a later sighting.
type Seller struct {
	ID               string `db:"id"                 json:"id"`
	Platform         string `db:"platform"           json:"platform"`
	PlatformSellerID string `db:"platform_seller_id" json:"platform_seller_id"`

	Name            *string    `db:"name"              json:"name,omitempty"`
	IsPrivate       bool       `db:"is_private"        json:"is_private"`
	IsVerified      bool       `db:"is_verified"       json:"is_verified"`
	RegisteredAt    *time.Time `db:"registered_at"     json:"registered_at,omitempty"`
	Location        *string    `db:"location"          json:"location,omitempty"`
	ActiveAdCount   *int       `db:"active_ad_count"   json:"active_ad_count,omitempty"`
	TotalAdCount    *int       `db:"total_ad_count"    json:"total_ad_count,omitempty"`
	OrgName         *string    `db:"org_name"          json:"org_name,omitempty"`
	OrgAddress      *string    `db:"org_address"       json:"org_address,omitempty"`
	OrgPhone        *string    `db:"org_phone"         json:"org_phone,omitempty"`
	OrgWebsite      *string    `db:"org_website"       json:"org_website,omitempty"`
	HasProfileImage bool       `db:"has_profile_image" json:"has_profile_image"`

	FirstSeenAt time.Time `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt  time.Time `db:"last_seen_at"  json:"last_seen_at"`
	UpdatedAt   time.Time `db:"updated_at"    json:"updated_at"`
}

// SellerHistory is an append-only snapshot of a seller's active ad count.
type SellerHistory struct {
	ID            string    `db:"id"              json:"id"`
	SellerID      string    `db:"seller_id"       json:"seller_id"`
	ActiveAdCount int       `db:"active_ad_count" json:"active_ad_count"`
	ObservedAt    time.Time `db:"observed_at"     json:"observed_at"`
}
