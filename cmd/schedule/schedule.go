// Package schedule implements the long-running scheduler that fires
// the three jobs on their cron cadences.
package schedule

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/madebyarthouse/rental-monitor-sub000/cmd/common"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/jobs"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// Command returns the schedule command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the job scheduler",
		Long:  `Runs discovery, sweep, and verification on their configured cron cadences until interrupted.`,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := common.NewApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	deps := app.JobDeps()
	log := app.Log.WithComponent("scheduler")

	entries := []struct {
		trigger string
		spec    string
	}{
		{domain.RunTypeDiscovery, app.Config.Crawler.DiscoverySchedule},
		{domain.RunTypeSweep, app.Config.Crawler.SweepSchedule},
		{domain.RunTypeVerification, app.Config.Crawler.VerificationSchedule},
	}

	c := cron.New()
	for _, entry := range entries {
		trigger := entry.trigger

		_, addErr := c.AddFunc(entry.spec, func() {
			// Detach the job from the tick so scheduling latency is not
			// blocked by job duration.
			go dispatch(ctx, trigger, deps, log)
		})
		if addErr != nil {
			return addErr
		}

		log.Info("job scheduled", "trigger", trigger, "schedule", entry.spec)
	}

	c.Start()
	defer c.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	return nil
}

// dispatch runs one orchestrator invocation for a trigger.
func dispatch(ctx context.Context, trigger string, deps jobs.Deps, log logger.Interface) {
	job, err := jobs.ForTrigger(trigger, deps)
	if err != nil {
		log.Error("unknown trigger", "trigger", trigger, "error", err)
		return
	}

	if runErr := job.Run(ctx); runErr != nil {
		log.Error("job failed", "trigger", trigger, "error", runErr)
	}
}
