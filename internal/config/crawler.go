package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default crawler settings. Caps and cadences mirror the marketplace's
// pagination behavior and the jobs' division of labour.
const (
	defaultPlatform            = "willhaben"
	defaultOverviewURLTemplate = "https://www.willhaben.at/iad/immobilien/mietwohnungen/mietwohnung-angebote?page=%d"

	defaultDiscoveryMaxPages    = 15
	defaultDiscoveryEmptyStreak = 3

	defaultSweepMaxPages      = 50
	defaultSweepResumeOverlap = 5
	defaultSweepFullAfter     = 12 * time.Hour

	defaultVerifyBatchSize  = 100
	defaultVerifyStaleAfter = 24 * time.Hour

	defaultDiscoverySchedule    = "*/30 * * * *"
	defaultSweepSchedule        = "0 */3 * * *"
	defaultVerificationSchedule = "0 */6 * * *"
)

// Crawler holds the job-level crawl settings.
type Crawler struct {
	// Platform is the marketplace name stored on every listing.
	Platform string
	// OverviewURLTemplate formats the paginated overview URL; it takes
	// the 1-based page number.
	OverviewURLTemplate string

	// DiscoveryMaxPages is the safety cap on overview pages per
	// discovery run.
	DiscoveryMaxPages int
	// DiscoveryEmptyStreak stops discovery after this many consecutive
	// pages without a previously-unseen listing.
	DiscoveryEmptyStreak int

	// SweepMaxPages is the page cap per sweep run.
	SweepMaxPages int
	// SweepResumeOverlap is how many pages a resumed sweep re-covers
	// before its last checkpoint.
	SweepResumeOverlap int
	// SweepFullAfter forces a full resweep from page 1 when the last
	// sweep began longer ago than this.
	SweepFullAfter time.Duration

	// VerifyBatchSize caps the listings verified per run.
	VerifyBatchSize int
	// VerifyStaleAfter selects listings not reconfirmed within this
	// window as verification candidates.
	VerifyStaleAfter time.Duration

	// Cron schedules for the three jobs.
	DiscoverySchedule    string
	SweepSchedule        string
	VerificationSchedule string
}

// loadCrawler loads crawler configuration.
func loadCrawler(v *viper.Viper) Crawler {
	return Crawler{
		Platform:            getConfigValue("CRAWLER_PLATFORM", "crawler.platform", defaultPlatform, v),
		OverviewURLTemplate: getConfigValue("CRAWLER_OVERVIEW_URL", "crawler.overview_url", defaultOverviewURLTemplate, v),

		DiscoveryMaxPages:    getConfigInt("crawler.discovery.max_pages", defaultDiscoveryMaxPages, v),
		DiscoveryEmptyStreak: getConfigInt("crawler.discovery.empty_streak", defaultDiscoveryEmptyStreak, v),

		SweepMaxPages:      getConfigInt("crawler.sweep.max_pages", defaultSweepMaxPages, v),
		SweepResumeOverlap: getConfigInt("crawler.sweep.resume_overlap", defaultSweepResumeOverlap, v),
		SweepFullAfter:     getConfigDuration("crawler.sweep.full_after", defaultSweepFullAfter, v),

		VerifyBatchSize:  getConfigInt("crawler.verification.batch_size", defaultVerifyBatchSize, v),
		VerifyStaleAfter: getConfigDuration("crawler.verification.stale_after", defaultVerifyStaleAfter, v),

		DiscoverySchedule:    getConfigValue("CRAWLER_DISCOVERY_SCHEDULE", "crawler.discovery.schedule", defaultDiscoverySchedule, v),
		SweepSchedule:        getConfigValue("CRAWLER_SWEEP_SCHEDULE", "crawler.sweep.schedule", defaultSweepSchedule, v),
		VerificationSchedule: getConfigValue("CRAWLER_VERIFICATION_SCHEDULE", "crawler.verification.schedule", defaultVerificationSchedule, v),
	}
}
