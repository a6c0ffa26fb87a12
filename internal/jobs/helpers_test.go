package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/config"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

const (
	testOverviewTemplate = "https://marketplace.test/overview?page=%d"
	testDetailURLPrefix  = "https://www.willhaben.at/iad/immobilien/d/"
)

// emptyOverviewHTML carries the payload without a result node, the
// marketplace's signal for "past the last page".
const emptyOverviewHTML = `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script></body></html>`

// delistedDetailHTML carries the payload without an advert-details
// node, the marketplace's signal for a removed listing.
const delistedDetailHTML = `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script></body></html>`

func testCrawlerConfig() config.Crawler {
	return config.Crawler{
		Platform:             "willhaben",
		OverviewURLTemplate:  testOverviewTemplate,
		DiscoveryMaxPages:    15,
		DiscoveryEmptyStreak: 3,
		SweepMaxPages:        50,
		SweepResumeOverlap:   5,
		SweepFullAfter:       12 * time.Hour,
		VerifyBatchSize:      100,
		VerifyStaleAfter:     24 * time.Hour,
	}
}

func overviewPageURL(page int) string {
	return fmt.Sprintf(testOverviewTemplate, page)
}

// summaryFixture is one listing summary on a fixture overview page.
type summaryFixture struct {
	id    string
	title string
	price string // locale-formatted, empty for no price attribute
}

func embedPayload(payload map[string]any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf(
		`<html><body><script id="__NEXT_DATA__" type="application/json">%s</script></body></html>`,
		raw,
	)
}

// overviewHTML renders an overview page payload with the given
// summaries.
func overviewHTML(summaries ...summaryFixture) string {
	rendered := make([]any, 0, len(summaries))
	for _, s := range summaries {
		attrs := []any{}
		if s.price != "" {
			attrs = append(attrs, map[string]any{"name": "PRICE", "values": []string{s.price}})
		}
		rendered = append(rendered, map[string]any{
			"id":          s.id,
			"description": s.title,
			"attributes":  map[string]any{"attribute": attrs},
		})
	}

	return embedPayload(map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{
				"searchResult": map[string]any{
					"pageRequested":     1,
					"rowsRequested":     25,
					"rowsFound":         len(rendered),
					"rowsReturned":      len(rendered),
					"advertSummaryList": map[string]any{"advertSummary": rendered},
				},
			},
		},
	})
}

// detailHTML renders a detail page payload, optionally with an
// organisation seller block.
func detailHTML(id, title, rent string, withSeller bool) string {
	attrs := []any{
		map[string]any{"name": "RENT/PER_MONTH_LETTINGS", "values": []string{rent}},
		map[string]any{"name": "POSTCODE", "values": []string{"1070"}},
		map[string]any{"name": "LOCATION", "values": []string{"Wien"}},
		map[string]any{"name": "STATE", "values": []string{"Wien"}},
	}

	details := map[string]any{
		"id":          id,
		"description": title,
	}

	if withSeller {
		attrs = append(attrs, map[string]any{"name": "ORGNAME", "values": []string{"Muster Immobilien Vermittlung GmbH"}})
		details["organisationDetails"] = map[string]any{
			"id":              "5551234",
			"name":            "Muster Immobilien GmbH",
			"isPrivate":       false,
			"isVerified":      true,
			"activeAdCount":   42,
			"totalAdCount":    310,
			"hasProfileImage": true,
		}
	}

	details["attributes"] = map[string]any{"attribute": attrs}

	return embedPayload(map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{"advertDetails": details},
		},
	})
}

// fakeFetcher serves canned pages by URL and records every request.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	urls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		return "", err
	}
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no fixture for %s", url)
	}
	return html, nil
}

func (f *fakeFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

// fakeListings serves known listings by external id and a fixed stale
// candidate set.
type fakeListings struct {
	known map[string]*domain.Listing
	stale []*domain.Listing
}

func newFakeListings() *fakeListings {
	return &fakeListings{known: make(map[string]*domain.Listing)}
}

func (f *fakeListings) ByExternalIDs(
	_ context.Context,
	platform string,
	externalIDs []string,
) (map[string]*domain.Listing, error) {
	result := make(map[string]*domain.Listing)
	for _, id := range externalIDs {
		if listing, ok := f.known[id]; ok && listing.Platform == platform {
			result[id] = listing
		}
	}
	return result, nil
}

func (f *fakeListings) StaleActive(_ context.Context, _ time.Time, limit int) ([]*domain.Listing, error) {
	if len(f.stale) > limit {
		return f.stale[:limit], nil
	}
	return f.stale, nil
}

// fakeSellers records upserts and assigns deterministic row ids.
type fakeSellers struct {
	upserted [][]*domain.Seller
}

func (f *fakeSellers) Upsert(_ context.Context, sellers []*domain.Seller) error {
	for _, seller := range sellers {
		if seller.ID == "" {
			seller.ID = "seller-" + seller.PlatformSellerID
		}
	}
	f.upserted = append(f.upserted, sellers)
	return nil
}

// fakeWriter records applied batches.
type fakeWriter struct {
	batches  []*database.Batch
	applyErr error
}

func (f *fakeWriter) Apply(_ context.Context, batch *database.Batch) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	if batch.Len() > 0 {
		f.batches = append(f.batches, batch)
	}
	return nil
}

// finishedRun captures one FinishRun call.
type finishedRun struct {
	runID        string
	status       string
	errorMessage *string
}

// fakeRuns records run lifecycle calls and serves a configurable
// last-successful-run.
type fakeRuns struct {
	last     *domain.ScrapeRun
	started  []*domain.ScrapeRun
	metrics  []domain.RunMetrics
	finished []finishedRun
}

func (f *fakeRuns) StartRun(_ context.Context, runType string) (*domain.ScrapeRun, error) {
	run := &domain.ScrapeRun{
		ID:        fmt.Sprintf("run-%d", len(f.started)+1),
		Type:      runType,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	f.started = append(f.started, run)
	return run, nil
}

func (f *fakeRuns) UpdateMetrics(_ context.Context, _ string, m domain.RunMetrics) error {
	f.metrics = append(f.metrics, m)
	return nil
}

func (f *fakeRuns) FinishRun(
	_ context.Context,
	runID string,
	_ time.Time,
	status string,
	errorMessage *string,
) error {
	f.finished = append(f.finished, finishedRun{runID: runID, status: status, errorMessage: errorMessage})
	return nil
}

func (f *fakeRuns) LastRunOfType(_ context.Context, _ string) (*domain.ScrapeRun, error) {
	return f.last, nil
}

func (f *fakeRuns) lastMetrics() domain.RunMetrics {
	if len(f.metrics) == 0 {
		return domain.RunMetrics{}
	}
	return f.metrics[len(f.metrics)-1]
}
