package parser

import (
	"strconv"
	"time"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/location"
)

const monthsPerYear = 12

// ListingDetail is the normalized result of parsing a single listing
// page.
type ListingDetail struct {
	ExternalID     string
	Title          string
	URL            string
	Price          float64
	Area           *float64
	RoomCount      *int
	IsLimited      bool
	DurationMonths *int
	Location       location.RawLocation
	Seller         *SellerDetail
}

// SellerDetail carries the seller and organisation sub-fields of a
// listing page.
type SellerDetail struct {
	PlatformSellerID string
	Name             *string
	OrgName          *string
	IsPrivate        bool
	IsVerified       bool
	RegisteredAt     *time.Time
	Location         *string
	ActiveAdCount    *int
	TotalAdCount     *int
	Address          *string
	Phone            *string
	Website          *string
	HasProfileImage  bool
}

// ParseDetail extracts a listing from its detail page. It returns nil
// when the advert-details node is absent: that is the listing's
// positive not-found signal used by Verification, not a parse failure.
func ParseDetail(html, sourceURL string) *ListingDetail {
	p := extractPayload(html)
	if p == nil || p.Props.PageProps.AdvertDetails == nil {
		return nil
	}

	details := p.Props.PageProps.AdvertDetails
	attrs := details.Attributes

	detail := &ListingDetail{
		ExternalID: details.ID,
		Title:      details.Description,
		URL:        sourceURL,
	}

	if seo := attrs.value(attrSEOURL); seo != "" {
		detail.URL = platformBaseURL + seo
	}

	if raw := attrs.value(attrMonthlyRent); raw != "" {
		if price, ok := ParseLocalePrice(raw); ok {
			detail.Price = price
		}
	}

	if raw := attrs.value(attrLivingArea); raw != "" {
		if area, ok := parseDecimalComma(raw); ok {
			detail.Area = &area
		}
	}

	if raw := attrs.value(attrRoomCount); raw != "" {
		if rooms, err := strconv.Atoi(raw); err == nil {
			detail.RoomCount = &rooms
		}
	}

	if attrs.value(attrRentalPeriod) == limitedPeriodMarker {
		detail.IsLimited = true
		if raw := attrs.value(attrRentalYears); raw != "" {
			if years, err := strconv.Atoi(raw); err == nil {
				months := years * monthsPerYear
				detail.DurationMonths = &months
			}
		}
	}

	raw := location.RawLocation{
		PostalCode: attrs.value(attrPostalCode),
		City:       attrs.value(attrLocation),
		District:   attrs.value(attrDistrict),
		State:      attrs.value(attrState),
	}
	detail.Location = location.Enhance(raw, detail.URL)

	detail.Seller = parseSeller(details.OrganisationDetails)
	if detail.Seller != nil {
		// Commercial sellers carry their company name as an advert
		// attribute, separate from the organisation display name.
		if orgName := attrs.value(attrOrgName); orgName != "" {
			detail.Seller.OrgName = &orgName
		}
	}

	return detail
}

// parseSeller maps the organisation node to a SellerDetail, or nil when
// the page carries no resolvable seller identity.
func parseSeller(org *organisationDetails) *SellerDetail {
	if org == nil || org.ID == "" {
		return nil
	}

	seller := &SellerDetail{
		PlatformSellerID: org.ID,
		IsPrivate:        org.IsPrivate,
		IsVerified:       org.IsVerified,
		ActiveAdCount:    org.ActiveAdCount,
		TotalAdCount:     org.TotalAdCount,
		HasProfileImage:  org.HasProfileImage,
	}

	if org.Name != "" {
		seller.Name = &org.Name
	}
	if org.Location != "" {
		seller.Location = &org.Location
	}
	if org.Address != "" {
		seller.Address = &org.Address
	}
	if org.Phone != "" {
		seller.Phone = &org.Phone
	}
	if org.Website != "" {
		seller.Website = &org.Website
	}
	if org.RegisteredSince != "" {
		if registered, err := time.Parse("2006-01-02", org.RegisteredSince); err == nil {
			seller.RegisteredAt = &registered
		}
	}

	return seller
}
