package backlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/newsforge/registerminer/internal/checkpoint"
	"github.com/newsforge/registerminer/internal/config"
	"github.com/newsforge/registerminer/internal/logger"
	"github.com/newsforge/registerminer/internal/retry"
)

// Publisher publishes one batch of stories for a year.
type Publisher interface {
	PublishBatch(ctx context.Context, year string, batchSize int) error
}

// ExecPublisher invokes the external publish command per batch.
type ExecPublisher struct {
	// Command is the external publish command, e.g.
	// ["python3", "publish_historical_stories.py"].
	Command []string
	// LogPath receives the subprocess output, appended across batches.
	LogPath string
}

// PublishBatch runs the publish command for one year and batch size.
func (p *ExecPublisher) PublishBatch(ctx context.Context, year string, batchSize int) error {
	if len(p.Command) == 0 {
		return errors.New("no publish command configured")
	}

	args := append([]string{}, p.Command...)
	args = append(args, "--year", year, "--batch-size", strconv.Itoa(batchSize))

	logFile, err := os.OpenFile(p.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open publish log %s: %w", p.LogPath, err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("publish batch (year %s): %w", year, err)
	}
	return nil
}

// Runner drains the backlog batch by batch.
type Runner struct {
	log logger.Logger
	pub Publisher
	cp  *checkpoint.Checkpoint // nil disables checkpoints
	cfg config.BacklogConfig
}

// NewRunner creates a backlog runner. cp may be nil when the checkpoint step
// is disabled.
func NewRunner(log logger.Logger, pub Publisher, cp *checkpoint.Checkpoint, cfg config.BacklogConfig) *Runner {
	return &Runner{log: log, pub: pub, cp: cp, cfg: cfg}
}

// Run publishes batches until the backlog is empty or the context ends.
// Each batch is retried with exponential backoff; a year whose batch keeps
// failing is set aside for the cycle so the rotation moves on. If a full
// cycle makes no progress at all the runner gives up rather than spin.
func (r *Runner) Run(ctx context.Context) error {
	progress, err := LoadProgress(r.cfg.ProgressFile, r.cfg.Years)
	if err != nil {
		return err
	}
	r.log.Info("Backlog state loaded",
		logger.Int("published", progress.TotalPublished),
		logger.Int("remaining", progress.TotalRemaining))

	retryCfg := retry.Config{
		MaxAttempts:  r.cfg.MaxRetries,
		InitialDelay: r.cfg.BaseDelay,
		MaxDelay:     r.cfg.MaxDelay,
		Multiplier:   2.0,
	}

	batches := 0
	for progress.TotalRemaining > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		advanced := false
		for _, quota := range r.cfg.Years {
			year := quota.Year
			remaining := progress.Remaining(year)
			if remaining == 0 {
				continue
			}
			size := min(r.cfg.BatchSize, remaining)

			r.log.Info("Publishing batch",
				logger.String("year", year),
				logger.Int("batch_size", size),
				logger.Int("remaining", remaining))

			err := retry.Do(ctx, retryCfg, func() error {
				return r.pub.PublishBatch(ctx, year, size)
			})
			if err != nil {
				if errors.Is(err, retry.ErrContextCancelled) {
					return err
				}
				r.log.Error("Batch failed after retries, moving to next year",
					logger.String("year", year),
					logger.Error(err))
				continue
			}

			progress.Apply(year, size)
			if err := progress.Save(r.cfg.ProgressFile); err != nil {
				return err
			}
			batches++
			advanced = true

			if r.cp != nil && r.cfg.CheckpointEvery > 0 && batches%r.cfg.CheckpointEvery == 0 {
				msg := fmt.Sprintf("Publish backlog batch %d (%d stories total)", batches, progress.TotalPublished)
				if cpErr := r.cp.Commit(ctx, msg); cpErr != nil {
					r.log.Error("Intermediate checkpoint failed", logger.Error(cpErr))
				}
			}

			if progress.TotalRemaining > 0 && r.cfg.BatchDelay > 0 {
				select {
				case <-time.After(r.cfg.BatchDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if !advanced {
			return fmt.Errorf("no batch succeeded in a full rotation, %d stories still unpublished", progress.TotalRemaining)
		}
	}

	r.log.Info("Backlog drained", logger.Int("published", progress.TotalPublished))

	if r.cp != nil {
		msg := fmt.Sprintf("Publish backlog complete (%d stories)", progress.TotalPublished)
		if err := r.cp.Commit(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
