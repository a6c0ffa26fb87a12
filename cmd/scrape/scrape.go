// Package scrape implements the commands that run a single job
// invocation: discover, sweep, and verify.
package scrape

import (
	"github.com/spf13/cobra"

	"github.com/madebyarthouse/rental-monitor-sub000/cmd/common"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/jobs"
)

// DiscoverCommand returns the discover command.
func DiscoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Find and persist previously-unseen listings",
		RunE:  runTrigger(domain.RunTypeDiscovery),
	}
}

// SweepCommand returns the sweep command.
func SweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Refresh price and activity on known listings",
		RunE:  runTrigger(domain.RunTypeSweep),
	}
}

// VerifyCommand returns the verify command.
func VerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-confirm stale active listings, deactivating delisted ones",
		RunE:  runTrigger(domain.RunTypeVerification),
	}
}

// runTrigger builds the RunE executing one orchestrator invocation.
func runTrigger(trigger string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := common.NewApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		job, err := jobs.ForTrigger(trigger, app.JobDeps())
		if err != nil {
			return err
		}

		return job.Run(ctx)
	}
}
