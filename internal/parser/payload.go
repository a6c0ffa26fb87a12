// Package parser extracts structured listing data from the JSON payload
// the marketplace embeds in its HTML pages. The pipeline depends only on
// the payload's field names, never on page markup.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// payloadSelector locates the embedded JSON payload script tag.
const payloadSelector = "script#__NEXT_DATA__"

// Attribute names carried by the payload's attribute lists.
const (
	attrSEOURL          = "SEO_URL"
	attrPrice           = "PRICE"
	attrMonthlyRent     = "RENT/PER_MONTH_LETTINGS"
	attrLivingArea      = "ESTATE_SIZE/LIVING_AREA"
	attrRoomCount       = "NUMBER_OF_ROOMS"
	attrRentalPeriod    = "RENTAL_PERIOD"
	attrRentalYears     = "RENTAL_DURATION_YEARS"
	attrPostalCode      = "POSTCODE"
	attrLocation        = "LOCATION"
	attrDistrict        = "DISTRICT"
	attrState           = "STATE"
	attrOrgName         = "ORGNAME"
)

// limitedPeriodMarker is the RENTAL_PERIOD attribute value signalling a
// limited-duration lease.
const limitedPeriodMarker = "befristet"

// payload mirrors the embedded script payload down to the nodes this
// pipeline reads.
type payload struct {
	Props struct {
		PageProps pageProps `json:"pageProps"`
	} `json:"props"`
}

type pageProps struct {
	SearchResult  *searchResult  `json:"searchResult"`
	AdvertDetails *advertDetails `json:"advertDetails"`
}

type searchResult struct {
	AdvertSummaryList *advertSummaryList `json:"advertSummaryList"`
	PageRequested     int                `json:"pageRequested"`
	RowsRequested     int                `json:"rowsRequested"`
	RowsFound         int                `json:"rowsFound"`
	RowsReturned      int                `json:"rowsReturned"`
}

type advertSummaryList struct {
	AdvertSummary []advertSummary `json:"advertSummary"`
}

type advertSummary struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Attributes  attributeList `json:"attributes"`
}

type advertDetails struct {
	ID                  string               `json:"id"`
	Description         string               `json:"description"`
	Attributes          attributeList        `json:"attributes"`
	OrganisationDetails *organisationDetails `json:"organisationDetails"`
}

type organisationDetails struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IsPrivate       bool   `json:"isPrivate"`
	IsVerified      bool   `json:"isVerified"`
	RegisteredSince string `json:"registeredSince"`
	Location        string `json:"location"`
	ActiveAdCount   *int   `json:"activeAdCount"`
	TotalAdCount    *int   `json:"totalAdCount"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	Website         string `json:"website"`
	HasProfileImage bool   `json:"hasProfileImage"`
}

type attributeList struct {
	Attribute []attribute `json:"attribute"`
}

type attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// value returns the first value of the named attribute, or "".
func (l attributeList) value(name string) string {
	for _, attr := range l.Attribute {
		if attr.Name == name && len(attr.Values) > 0 {
			return attr.Values[0]
		}
	}
	return ""
}

// extractPayload pulls the embedded JSON payload out of a fetched page.
// A missing or unparseable payload yields nil, not an error: absence is
// a signal ("no more results", "listing delisted") interpreted by the
// callers.
func extractPayload(html string) *payload {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	raw := doc.Find(payloadSelector).First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var p payload
	if unmarshalErr := json.Unmarshal([]byte(raw), &p); unmarshalErr != nil {
		return nil
	}

	return &p
}
