// Package scheduler implements the periodic runner command: mining runs on a
// cron schedule until interrupted.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/newsforge/registerminer/cmd/common"
	"github.com/newsforge/registerminer/internal/logger"
	"github.com/newsforge/registerminer/internal/pipeline"
)

// Command returns the scheduler command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run mining passes on a cron schedule",
		Long: `Run the mining pipeline periodically on the configured cron schedule.
The scheduler runs until interrupted with Ctrl+C. A tick that fires while
the previous run is still in flight is skipped.`,
		RunE: runScheduler,
	}
}

// runScheduler executes the scheduler command.
func runScheduler(cmd *cobra.Command, _ []string) error {
	deps, err := common.NewCommandDeps()
	if err != nil {
		return err
	}
	defer func() { _ = deps.Logger.Sync() }()

	ctx := cmd.Context()
	pl := pipeline.New(deps.Logger, deps.Config)

	// Overlapping runs would double up load on the upstream API.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(deps.Config.Scheduler.CronSpec, func() {
		deps.Logger.Info("Scheduled mining run starting")
		if runErr := pl.RunOnce(ctx); runErr != nil {
			deps.Logger.Error("Scheduled mining run failed", logger.Error(runErr))
		}
	})
	if err != nil {
		return err
	}

	deps.Logger.Info("Scheduler started",
		logger.String("cron_spec", deps.Config.Scheduler.CronSpec))
	c.Start()

	<-ctx.Done()
	deps.Logger.Info("Shutdown signal received, waiting for running jobs")

	// Stop returns a context that completes when the in-flight run ends.
	<-c.Stop().Done()
	deps.Logger.Info("Scheduler stopped")
	return nil
}
