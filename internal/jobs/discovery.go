package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/parser"
)

// Discovery finds and persists listings not yet known, and touches the
// ones already known. It walks overview pages from page 1, fetching the
// detail page of every previously-unseen listing.
type Discovery struct {
	deps Deps
}

// NewDiscovery creates the discovery job.
func NewDiscovery(deps Deps) *Discovery {
	return &Discovery{deps: deps.withDefaults()}
}

// discoveryMetrics accumulates the run counters.
type discoveryMetrics struct {
	pagesVisited       int
	pagesFetched       int
	listingsDiscovered int
	listingsUpdated    int
	priceRowsInserted  int
}

// runMetrics converts the counters for checkpointing.
func (m *discoveryMetrics) runMetrics(page int) domain.RunMetrics {
	return domain.RunMetrics{
		PagesVisited:         intPtr(m.pagesVisited),
		PagesFetched:         intPtr(m.pagesFetched),
		ListingsDiscovered:   intPtr(m.listingsDiscovered),
		ListingsUpdated:      intPtr(m.listingsUpdated),
		PriceHistoryInserted: intPtr(m.priceRowsInserted),
		LastOverviewPage:     intPtr(page),
	}
}

// Run executes one discovery pass. Partial results of pages already
// committed remain valid when a later page fails.
func (j *Discovery) Run(ctx context.Context) error {
	run, err := j.deps.Runs.StartRun(ctx, domain.RunTypeDiscovery)
	if err != nil {
		return fmt.Errorf("start discovery run: %w", err)
	}

	log := j.deps.Log.WithRun(domain.RunTypeDiscovery, run.ID)
	log.Info("discovery started")

	metrics := &discoveryMetrics{}

	if crawlErr := j.crawl(ctx, run, metrics, log); crawlErr != nil {
		log.Error("discovery failed", "error", crawlErr)
		return j.deps.finishError(ctx, run, log, crawlErr)
	}

	j.deps.finishSuccess(ctx, run, log)
	log.Info("discovery finished",
		"pages_visited", metrics.pagesVisited,
		"listings_discovered", metrics.listingsDiscovered,
		"listings_updated", metrics.listingsUpdated,
	)

	return nil
}

// crawl walks overview pages until the page cap, an empty page, or a
// streak of pages yielding nothing unseen.
func (j *Discovery) crawl(
	ctx context.Context,
	run *domain.ScrapeRun,
	metrics *discoveryMetrics,
	log logger.Interface,
) error {
	emptyStreak := 0

	for page := 1; page <= j.deps.Crawler.DiscoveryMaxPages; page++ {
		html, fetchErr := j.deps.Fetcher.Fetch(ctx, j.deps.overviewURL(page))
		if fetchErr != nil {
			return fmt.Errorf("fetch overview page %d: %w", page, fetchErr)
		}
		metrics.pagesFetched++

		items := parser.ParseOverview(html)
		metrics.pagesVisited++
		if len(items) == 0 {
			log.Info("overview exhausted", "page", page)
			break
		}

		newCount, pageErr := j.processPage(ctx, page, items, metrics, log)
		if pageErr != nil {
			return pageErr
		}

		j.deps.checkpoint(ctx, run.ID, metrics.runMetrics(page), log)

		if newCount == 0 {
			emptyStreak++
			if emptyStreak >= j.deps.Crawler.DiscoveryEmptyStreak {
				log.Info("stopping after consecutive known-only pages", "page", page, "streak", emptyStreak)
				break
			}
		} else {
			emptyStreak = 0
		}
	}

	return nil
}

// processPage splits one overview page into known and unseen listings,
// persists the page's writes as one batch, and returns how many unseen
// listings it found.
func (j *Discovery) processPage(
	ctx context.Context,
	page int,
	items []parser.OverviewItem,
	metrics *discoveryMetrics,
	log logger.Interface,
) (int, error) {
	externalIDs := make([]string, 0, len(items))
	for _, item := range items {
		externalIDs = append(externalIDs, item.ID)
	}

	existing, lookupErr := j.deps.Listings.ByExternalIDs(ctx, j.deps.Crawler.Platform, externalIDs)
	if lookupErr != nil {
		return 0, fmt.Errorf("look up page %d listings: %w", page, lookupErr)
	}

	now := j.deps.Now().UTC()
	batch := database.NewBatch()

	touchIDs := make([]string, 0, len(existing))
	newItems := make([]parser.OverviewItem, 0, len(items))
	for _, item := range items {
		if known, ok := existing[item.ID]; ok {
			touchIDs = append(touchIDs, known.ID)
		} else {
			newItems = append(newItems, item)
		}
	}

	batch.TouchListings(touchIDs, now)
	metrics.listingsUpdated += len(touchIDs)

	discovered, detailErr := j.fetchDetails(ctx, newItems, log)
	if detailErr != nil {
		return len(newItems), detailErr
	}

	if sellerErr := j.persistSellers(ctx, discovered, batch, now); sellerErr != nil {
		return len(newItems), sellerErr
	}

	for _, d := range discovered {
		batch.UpsertListing(d.listing)
		batch.AppendPriceHistory(d.listing, d.listing.Price, now)
		metrics.listingsDiscovered++
		metrics.priceRowsInserted++
	}

	if applyErr := j.deps.Writer.Apply(ctx, batch); applyErr != nil {
		return len(newItems), fmt.Errorf("persist page %d: %w", page, applyErr)
	}

	log.Info("page processed",
		"page", page,
		"known", len(touchIDs),
		"new", len(discovered),
	)

	return len(newItems), nil
}

// discoveredListing pairs a new listing with its parsed seller.
type discoveredListing struct {
	listing *domain.Listing
	seller  *parser.SellerDetail
}

// fetchDetails fetches and parses the detail page of every unseen
// listing. Items whose detail fetch or parse fails are skipped, never
// failing the page.
func (j *Discovery) fetchDetails(
	ctx context.Context,
	items []parser.OverviewItem,
	log logger.Interface,
) ([]*discoveredListing, error) {
	discovered := make([]*discoveredListing, 0, len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		html, fetchErr := j.deps.Fetcher.Fetch(ctx, item.URL)
		if fetchErr != nil {
			log.Warn("detail fetch failed, skipping item", "url", item.URL, "error", fetchErr.Error())
			continue
		}

		detail := parser.ParseDetail(html, item.URL)
		if detail == nil {
			log.Warn("detail payload missing, skipping item", "url", item.URL)
			continue
		}
		if detail.Price <= 0 {
			log.Warn("detail carries no price, skipping item", "url", item.URL)
			continue
		}

		discovered = append(discovered, &discoveredListing{
			listing: j.buildListing(item, detail),
			seller:  detail.Seller,
		})
	}

	return discovered, nil
}

// persistSellers upserts the page's sellers first so their generated
// row ids can be referenced by the listing batch, and queues a
// seller-history snapshot for every seller with a known ad count.
func (j *Discovery) persistSellers(
	ctx context.Context,
	discovered []*discoveredListing,
	batch *database.Batch,
	now time.Time,
) error {
	sellersByKey := make(map[string]*domain.Seller)
	order := make([]*domain.Seller, 0)

	for _, d := range discovered {
		if d.seller == nil {
			continue
		}
		if _, seen := sellersByKey[d.seller.PlatformSellerID]; seen {
			continue
		}

		seller := j.buildSeller(d.seller, now)
		sellersByKey[d.seller.PlatformSellerID] = seller
		order = append(order, seller)
	}

	if len(order) == 0 {
		return nil
	}

	if err := j.deps.Sellers.Upsert(ctx, order); err != nil {
		return fmt.Errorf("upsert sellers: %w", err)
	}

	for _, seller := range order {
		if seller.ActiveAdCount != nil {
			batch.AppendSellerHistory(seller, *seller.ActiveAdCount, now)
		}
	}

	for _, d := range discovered {
		if d.seller == nil {
			continue
		}
		if seller, ok := sellersByKey[d.seller.PlatformSellerID]; ok {
			d.listing.SellerID = &seller.ID
		}
	}

	return nil
}

// buildListing maps a parsed detail onto a fresh listing row.
func (j *Discovery) buildListing(item parser.OverviewItem, detail *parser.ListingDetail) *domain.Listing {
	now := j.deps.Now().UTC()

	title := detail.Title
	if title == "" {
		title = item.Title
	}

	externalID := detail.ExternalID
	if externalID == "" {
		externalID = item.ID
	}

	return &domain.Listing{
		Title:              title,
		Price:              detail.Price,
		Area:               detail.Area,
		RoomCount:          detail.RoomCount,
		PostalCode:         strPtr(detail.Location.PostalCode),
		City:               strPtr(detail.Location.City),
		District:           strPtr(detail.Location.District),
		State:              strPtr(detail.Location.State),
		IsLimited:          detail.IsLimited,
		DurationMonths:     detail.DurationMonths,
		Platform:           j.deps.Crawler.Platform,
		URL:                detail.URL,
		ExternalID:         externalID,
		FirstSeenAt:        now,
		LastSeenAt:         now,
		LastScrapedAt:      &now,
		IsActive:           true,
		VerificationStatus: domain.VerificationActive,
	}
}

// buildSeller maps a parsed seller onto a seller row.
func (j *Discovery) buildSeller(detail *parser.SellerDetail, now time.Time) *domain.Seller {
	return &domain.Seller{
		Platform:         j.deps.Crawler.Platform,
		PlatformSellerID: detail.PlatformSellerID,
		Name:             detail.Name,
		OrgName:          detail.OrgName,
		IsPrivate:        detail.IsPrivate,
		IsVerified:       detail.IsVerified,
		RegisteredAt:     detail.RegisteredAt,
		Location:         detail.Location,
		ActiveAdCount:    detail.ActiveAdCount,
		TotalAdCount:     detail.TotalAdCount,
		OrgAddress:       detail.Address,
		OrgPhone:         detail.Phone,
		OrgWebsite:       detail.Website,
		HasProfileImage:  detail.HasProfileImage,
		FirstSeenAt:      now,
		LastSeenAt:       now,
		UpdatedAt:        now,
	}
}
