// Package backlog implements the systematic batch publisher command for the
// historical document backlog.
package backlog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newsforge/registerminer/cmd/common"
	"github.com/newsforge/registerminer/internal/backlog"
	"github.com/newsforge/registerminer/internal/checkpoint"
)

// Command returns the backlog command for use in the root command.
func Command() *cobra.Command {
	var noGit bool

	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Publish the historical backlog in batches",
		Long: `Systematically publish the backlog of historical documents. The command
rotates through the configured years, publishing one batch per year per
cycle with exponential-backoff retries, and records progress so an
interrupted run resumes where it left off.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			if err := os.MkdirAll(deps.Config.Paths.LogDir, 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}

			pub := &backlog.ExecPublisher{
				Command: deps.Config.Publisher.Command,
				LogPath: filepath.Join(deps.Config.Paths.LogDir, "backlog_publishing.log"),
			}

			var cp *checkpoint.Checkpoint
			if deps.Config.Git.Enabled && !noGit {
				cp = checkpoint.New(deps.Logger, &checkpoint.ExecGit{Dir: deps.Config.Git.WorkTree})
			}

			runner := backlog.NewRunner(deps.Logger, pub, cp, deps.Config.Backlog)
			return runner.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&noGit, "no-git", false, "Skip git checkpoints between batches")

	return cmd
}
