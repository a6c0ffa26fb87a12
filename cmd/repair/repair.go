// Package repair implements the batch tooling that re-resolves listing
// locations against the curated region hierarchy.
package repair

import (
	"github.com/spf13/cobra"

	"github.com/madebyarthouse/rental-monitor-sub000/cmd/common"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/location"
)

const defaultBatchSize = 500

// Command returns the repair-locations command.
func Command() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "repair-locations",
		Short: "Attach region references to listings missing one",
		Long: `Builds a lookup index from the region table and matches listings
with scraped location fields but no region reference against it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", defaultBatchSize, "listings repaired per invocation")

	return cmd
}

func run(cmd *cobra.Command, batchSize int) error {
	ctx := cmd.Context()

	app, err := common.NewApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	log := app.Log.WithComponent("repair")

	regions, err := app.RegionRepository().ListAll(ctx)
	if err != nil {
		return err
	}
	index := location.NewIndex(regions)

	listings := app.ListingRepository()

	candidates, err := listings.MissingRegion(ctx, batchSize)
	if err != nil {
		return err
	}

	repaired := 0
	for _, listing := range candidates {
		slug, ok := resolveSlug(index, listing.State, listing.District)
		if !ok {
			continue
		}

		region, regionErr := app.RegionRepository().BySlug(ctx, slug)
		if regionErr != nil {
			return regionErr
		}
		if region == nil {
			log.Warn("resolved slug has no region row", "slug", slug)
			continue
		}

		if setErr := listings.SetRegion(ctx, listing.ID, region.ID); setErr != nil {
			return setErr
		}
		repaired++
	}

	log.Info("location repair finished",
		"candidates", len(candidates),
		"repaired", repaired,
	)

	return nil
}

// resolveSlug prefers the district match and falls back to the state.
func resolveSlug(index *location.Index, state, district *string) (string, bool) {
	if state == nil {
		return "", false
	}

	if district != nil {
		if slug, ok := index.DistrictSlug(*state, *district); ok {
			return slug, true
		}
	}

	return index.StateSlug(*state)
}
