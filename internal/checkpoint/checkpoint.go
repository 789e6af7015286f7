// Package checkpoint persists newly produced content with a git
// stage/commit/push sequence. An empty staged diff is a no-op, so the
// pipeline never creates empty commits.
package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsforge/registerminer/internal/logger"
)

// Git executes a git subcommand and returns its combined output.
// The indirection keeps the checkpoint logic testable without a repository.
type Git interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Checkpoint stages, commits, and pushes working-tree changes.
type Checkpoint struct {
	log logger.Logger
	git Git
}

// New creates a checkpoint over the given git runner.
func New(log logger.Logger, git Git) *Checkpoint {
	return &Checkpoint{log: log, git: git}
}

// Commit stages all changes and, if anything is staged, commits with the
// given message and pushes. With a clean tree it logs and returns nil
// without committing. Push failures propagate untouched; they are the
// step's failing exit code and are not retried.
func (c *Checkpoint) Commit(ctx context.Context, message string) error {
	if _, err := c.git.Run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	staged, err := c.git.Run(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(staged) == "" {
		c.log.Info("No changes detected, skipping commit")
		return nil
	}

	if _, err := c.git.Run(ctx, "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	c.log.Info("Committed changes", logger.String("message", message))

	if _, err := c.git.Run(ctx, "push"); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	c.log.Info("Pushed changes to remote")

	return nil
}
