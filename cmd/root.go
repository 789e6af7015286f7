// Package cmd implements the command-line interface for the register mining
// pipeline. It provides the root command and subcommands for one-shot runs,
// periodic scheduling, and backlog publishing.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	backlogcmd "github.com/newsforge/registerminer/cmd/backlog"
	minecmd "github.com/newsforge/registerminer/cmd/mine"
	schedulercmd "github.com/newsforge/registerminer/cmd/scheduler"
	"github.com/newsforge/registerminer/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// rootCmd represents the root command for the registerminer CLI.
	rootCmd = &cobra.Command{
		Use:   "registerminer",
		Short: "Partitioned register mining and publishing pipeline",
		Long: `registerminer orchestrates a personal news-content pipeline: it mines a
government register in parallel partitions, publishes article files, and
checkpoints the results into version control.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command. The command context is cancelled on
// SIGINT/SIGTERM so a run in flight can terminate its children cleanly.
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early to get debug flag before creating the logger
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("registerminer version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(minecmd.Command())
	rootCmd.AddCommand(schedulercmd.Command())
	rootCmd.AddCommand(backlogcmd.Command())
}

// initConfig reads in the config file and environment variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Environment variables take precedence over defaults
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())

	// Config file is optional: defaults plus environment variables are a
	// workable setup for the scheduler host.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := viper.BindPFlag("logger.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if debug || viper.GetBool("logger.debug") {
		viper.Set("logger.level", "debug")
	}

	return nil
}
