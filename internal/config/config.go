// Package config holds the pipeline configuration, loaded from a YAML file
// with environment variable overrides via viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/newsforge/registerminer/internal/logger"
)

// Default values applied when the config file and environment provide none.
const (
	DefaultStaggerDelay = 2 * time.Second
	DefaultThreads      = 4
	DefaultPerPage      = 100
	DefaultBatchSize    = 25
	DefaultMaxRetries   = 5
	DefaultBaseDelay    = 2 * time.Second
	DefaultMaxDelay     = 60 * time.Second
	DefaultBatchDelay   = 5 * time.Minute
	DefaultCronSpec     = "0 */6 * * *"
)

// RetryPolicy is handed to the mining subprocess on its command line.
// The orchestrator itself never retries a partition; in-process rate-limit
// backoff belongs to the miner.
type RetryPolicy struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// MinerConfig describes how mining subprocesses are launched.
type MinerConfig struct {
	// Command is the external mining command, e.g.
	// ["python3", "rate_limited_register_miner.py"].
	Command []string `mapstructure:"command"`
	// Threads is the concurrency hint passed to each subprocess.
	Threads int `mapstructure:"threads"`
	// PerPage is the page size hint passed to each subprocess.
	PerPage int `mapstructure:"per_page"`
	// StaggerDelay is the fixed delay between successive job launches.
	// It bounds burst load on the upstream API across subprocesses.
	StaggerDelay time.Duration `mapstructure:"stagger_delay"`
	// PartitionsFile points at the YAML partition table (year -> page ranges).
	PartitionsFile string `mapstructure:"partitions_file"`
	// Retry is forwarded to each subprocess.
	Retry RetryPolicy `mapstructure:"retry"`
}

// PublisherConfig describes the downstream publish subprocess.
type PublisherConfig struct {
	// Command is the external publish command, e.g.
	// ["python3", "publish_historical_stories.py"].
	Command []string `mapstructure:"command"`
	// BatchSize is passed to the publish subprocess.
	BatchSize int `mapstructure:"batch_size"`
}

// GitConfig controls the version-control checkpoint step.
type GitConfig struct {
	// Enabled turns the checkpoint step on or off.
	Enabled bool `mapstructure:"enabled"`
	// WorkTree is the repository directory to commit from.
	// Empty means the current working directory.
	WorkTree string `mapstructure:"work_tree"`
}

// PathsConfig collects the directories and shared files the pipeline writes.
type PathsConfig struct {
	// OutputDir receives per-partition backlog files.
	OutputDir string `mapstructure:"output_dir"`
	// LogDir receives per-partition subprocess logs.
	LogDir string `mapstructure:"log_dir"`
	// RunDir receives per-run summary files.
	RunDir string `mapstructure:"run_dir"`
	// StatusLog is the shared cumulative status log, append-only.
	StatusLog string `mapstructure:"status_log"`
}

// SchedulerConfig controls the periodic runner.
type SchedulerConfig struct {
	// CronSpec is a standard five-field cron expression.
	CronSpec string `mapstructure:"cron_spec"`
}

// YearQuota is one year's share of the historical backlog.
type YearQuota struct {
	Year  string `mapstructure:"year"`
	Total int    `mapstructure:"total"`
}

// BacklogConfig controls the systematic batch publisher.
type BacklogConfig struct {
	// Years lists the backlog years and their document totals.
	Years []YearQuota `mapstructure:"years"`
	// BatchSize is the number of stories published per batch.
	BatchSize int `mapstructure:"batch_size"`
	// MaxRetries bounds retries of a failing publish batch.
	MaxRetries int `mapstructure:"max_retries"`
	// BaseDelay is the initial retry backoff delay.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps the retry backoff delay.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// BatchDelay is the pause between successive batches.
	BatchDelay time.Duration `mapstructure:"batch_delay"`
	// ProgressFile persists per-year publishing progress as JSON.
	ProgressFile string `mapstructure:"progress_file"`
	// CheckpointEvery commits after this many successful batches.
	// Zero disables intermediate checkpoints.
	CheckpointEvery int `mapstructure:"checkpoint_every"`
}

// Config is the full pipeline configuration.
type Config struct {
	Logger    logger.Config   `mapstructure:"logger"`
	Miner     MinerConfig     `mapstructure:"miner"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Git       GitConfig       `mapstructure:"git"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Backlog   BacklogConfig   `mapstructure:"backlog"`
}

// SetDefaults registers default configuration values on the given viper
// instance. Defaults are production safe: mining disabled-by-accident is
// preferred over accidental load against the upstream API.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger", map[string]any{
		"level":    "info",
		"encoding": "console",
	})
	v.SetDefault("miner", map[string]any{
		"threads":         DefaultThreads,
		"per_page":        DefaultPerPage,
		"stagger_delay":   DefaultStaggerDelay.String(),
		"partitions_file": "partitions.yml",
		"retry": map[string]any{
			"max_retries": DefaultMaxRetries,
			"base_delay":  DefaultBaseDelay.String(),
			"max_delay":   DefaultMaxDelay.String(),
		},
	})
	v.SetDefault("publisher", map[string]any{
		"batch_size": DefaultBatchSize,
	})
	v.SetDefault("git", map[string]any{
		"enabled": true,
	})
	v.SetDefault("paths", map[string]any{
		"output_dir": "output",
		"log_dir":    "logs",
		"run_dir":    "logs/runs",
		"status_log": "logs/mining_status.log",
	})
	v.SetDefault("scheduler", map[string]any{
		"cron_spec": DefaultCronSpec,
	})
	v.SetDefault("backlog", map[string]any{
		"batch_size":       DefaultBatchSize,
		"max_retries":      3,
		"base_delay":       "5s",
		"max_delay":        "60s",
		"batch_delay":      DefaultBatchDelay.String(),
		"progress_file":    "logs/publishing_progress.json",
		"checkpoint_every": 4,
	})
}

// FromViper unmarshals and validates the configuration from a viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface deep inside a run.
func (c *Config) Validate() error {
	if c.Miner.Threads <= 0 {
		return errors.New("miner.threads must be positive")
	}
	if c.Miner.PerPage <= 0 {
		return errors.New("miner.per_page must be positive")
	}
	if c.Miner.StaggerDelay < 0 {
		return errors.New("miner.stagger_delay must not be negative")
	}
	if c.Publisher.BatchSize <= 0 {
		return errors.New("publisher.batch_size must be positive")
	}
	if c.Backlog.BatchSize <= 0 {
		return errors.New("backlog.batch_size must be positive")
	}
	return nil
}
