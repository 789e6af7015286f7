// Package mine implements the one-shot mining run command.
package mine

import (
	"github.com/spf13/cobra"

	"github.com/newsforge/registerminer/cmd/common"
	"github.com/newsforge/registerminer/internal/pipeline"
)

// Command returns the mine command for use in the root command.
func Command() *cobra.Command {
	var (
		partitionsFile string
		noGit          bool
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Run one partitioned mining pass",
		Long: `Run one full mining pass: launch one mining subprocess per configured
year partition, wait for all of them, write the run summary, invoke the
publish step, and checkpoint the working tree.

Failed partitions do not abort the run; partial results are still published
and committed. Interrupting with Ctrl+C terminates all mining subprocesses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			if partitionsFile != "" {
				deps.Config.Miner.PartitionsFile = partitionsFile
			}
			if noGit {
				deps.Config.Git.Enabled = false
			}

			return pipeline.New(deps.Logger, deps.Config).RunOnce(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&partitionsFile, "partitions", "",
		"Override the partition table file from configuration")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Skip the git checkpoint step")

	return cmd
}
