// Package pipeline wires the planner, job runner, publisher invoker, and
// git checkpoint into one end-to-end mining run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newsforge/registerminer/internal/checkpoint"
	"github.com/newsforge/registerminer/internal/config"
	"github.com/newsforge/registerminer/internal/logger"
	"github.com/newsforge/registerminer/internal/partition"
	"github.com/newsforge/registerminer/internal/publish"
	"github.com/newsforge/registerminer/internal/runner"
)

// Pipeline executes full mining runs.
type Pipeline struct {
	log logger.Logger
	cfg *config.Config
}

// New creates a pipeline from the loaded configuration.
func New(log logger.Logger, cfg *config.Config) *Pipeline {
	return &Pipeline{log: log, cfg: cfg}
}

// RunOnce performs one complete run: plan partitions, fan out mining jobs,
// wait for all of them, write the run summary, invoke the publish step, and
// checkpoint the working tree. Job and publish failures are tolerated so the
// pipeline keeps moving; only cancellation and a checkpoint failure surface
// as the command's error.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	table, err := partition.LoadTable(p.cfg.Miner.PartitionsFile)
	if err != nil {
		return err
	}

	if err := p.ensureDirs(); err != nil {
		return err
	}

	run := runner.NewRun(time.Now())
	log := p.log.With(logger.String("run_id", run.ID))

	plan, err := partition.NewPlan(table, p.cfg.Paths.OutputDir, p.cfg.Paths.LogDir, run.ID)
	if err != nil {
		return err
	}
	log.Info("Planned mining run",
		logger.Int("partitions", len(plan.Partitions)),
		logger.Int("skipped", len(plan.Skipped)))

	jobRunner := runner.New(log, runner.MiningCommand(p.cfg.Miner), p.cfg.Miner.StaggerDelay)
	if err := jobRunner.Execute(ctx, run, plan); err != nil {
		// Cancellation is stop-the-world: children have been terminated,
		// nothing gets published on this path.
		log.Warn("Run aborted", logger.Error(err))
		return err
	}

	summaryPath, err := runner.WriteSummary(run, p.cfg.Paths.RunDir, p.cfg.Paths.StatusLog)
	if err != nil {
		// A lost summary does not block publishing.
		log.Error("Failed to write run summary", logger.Error(err))
	} else {
		log.Info("Run summary written", logger.String("summary", summaryPath))
	}
	log.Info("Mining phase finished", logger.String("outcome", string(run.Aggregate())))

	invoker := publish.NewInvoker(log, p.cfg.Publisher.Command, p.cfg.Publisher.BatchSize)
	publishLog := filepath.Join(p.cfg.Paths.LogDir, fmt.Sprintf("publish_%s.log", run.ID))
	if pubErr := invoker.Invoke(ctx, publishLog); pubErr != nil {
		// Mined output still gets checkpointed.
		log.Error("Publish step failed, continuing to checkpoint", logger.Error(pubErr))
	}

	if !p.cfg.Git.Enabled {
		log.Info("Checkpoint disabled, run complete")
		return nil
	}

	cp := checkpoint.New(log, &checkpoint.ExecGit{Dir: p.cfg.Git.WorkTree})
	message := fmt.Sprintf("Mining run %s: %s (%d partitions)", run.ID, run.Aggregate(), len(run.Jobs))
	return cp.Commit(ctx, message)
}

func (p *Pipeline) ensureDirs() error {
	for _, dir := range []string{p.cfg.Paths.OutputDir, p.cfg.Paths.LogDir, p.cfg.Paths.RunDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
