package parser

// Marketplace URL building blocks. The SEO slug attribute carries a
// path relative to the platform base; listings without one fall back to
// the canonical /d/{id} pattern.
const (
	platformBaseURL  = "https://www.willhaben.at/iad/"
	detailURLPattern = platformBaseURL + "immobilien/d/"
)

// OverviewItem is one listing summary from a paginated overview page.
// Price is set when the summary carries a price attribute; Sweep relies
// on it, Discovery ignores it.
type OverviewItem struct {
	ID    string
	Title string
	URL   string
	Price *float64
}

// OverviewDebug reports what the overview extraction saw, for
// diagnosing parser drift without failing a run.
type OverviewDebug struct {
	PayloadPresent       bool
	PageRequested        int
	RowsRequested        int
	RowsFound            int
	RowsReturned         int
	SummaryCount         int
	PaginationConsistent bool
}

// ParseOverview extracts the listing summaries from an overview page.
// It returns an empty slice, never an error, when the payload or its
// result node is absent: that is the page's no-more-results signal.
func ParseOverview(html string) []OverviewItem {
	p := extractPayload(html)
	if p == nil || p.Props.PageProps.SearchResult == nil {
		return nil
	}

	result := p.Props.PageProps.SearchResult
	if result.AdvertSummaryList == nil {
		return nil
	}

	items := make([]OverviewItem, 0, len(result.AdvertSummaryList.AdvertSummary))
	for _, summary := range result.AdvertSummaryList.AdvertSummary {
		if summary.ID == "" {
			continue
		}

		item := OverviewItem{
			ID:    summary.ID,
			Title: summary.Description,
			URL:   detailURL(summary),
		}
		if raw := summary.Attributes.value(attrPrice); raw != "" {
			if price, ok := ParseLocalePrice(raw); ok {
				item.Price = &price
			}
		}

		items = append(items, item)
	}

	return items
}

// ExtractOverviewDebug reports payload presence and pagination
// consistency for an overview page. It never fails.
func ExtractOverviewDebug(html string, requestedPage int) OverviewDebug {
	var debug OverviewDebug

	p := extractPayload(html)
	if p == nil || p.Props.PageProps.SearchResult == nil {
		return debug
	}

	result := p.Props.PageProps.SearchResult
	debug.PayloadPresent = true
	debug.PageRequested = result.PageRequested
	debug.RowsRequested = result.RowsRequested
	debug.RowsFound = result.RowsFound
	debug.RowsReturned = result.RowsReturned
	if result.AdvertSummaryList != nil {
		debug.SummaryCount = len(result.AdvertSummaryList.AdvertSummary)
	}

	debug.PaginationConsistent = result.PageRequested == requestedPage &&
		debug.SummaryCount == result.RowsReturned &&
		result.RowsReturned <= result.RowsRequested

	return debug
}

// detailURL builds a listing's detail URL from its SEO slug when
// present, else from the canonical /d/{id} pattern.
func detailURL(summary advertSummary) string {
	if seo := summary.Attributes.value(attrSEOURL); seo != "" {
		return platformBaseURL + seo
	}
	return detailURLPattern + summary.ID
}
