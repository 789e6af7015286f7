// Package publish invokes the downstream publish subprocess that turns mined
// backlog files into article pages.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/newsforge/registerminer/internal/logger"
)

// Invoker runs the external publish command.
// It is invoked exactly once per run, after all mining jobs have reported,
// regardless of how many of them failed: partial data is still worth
// publishing.
type Invoker struct {
	log       logger.Logger
	command   []string
	batchSize int
}

// NewInvoker creates a publish invoker for the given external command.
func NewInvoker(log logger.Logger, command []string, batchSize int) *Invoker {
	return &Invoker{log: log, command: command, batchSize: batchSize}
}

// Invoke runs the publish subprocess once, streaming its output to logPath.
// The returned error carries the subprocess exit status; callers log it and
// continue to the checkpoint step.
func (i *Invoker) Invoke(ctx context.Context, logPath string) error {
	if len(i.command) == 0 {
		return errors.New("no publish command configured")
	}

	args := append([]string{}, i.command...)
	args = append(args, "--batch-size", strconv.Itoa(i.batchSize))

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open publish log %s: %w", logPath, err)
	}
	defer logFile.Close()

	i.log.Info("Invoking publish step",
		logger.Strings("command", args),
		logger.String("log", logPath))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}

	i.log.Info("Publish step completed")
	return nil
}
