package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultThreads, cfg.Miner.Threads)
	assert.Equal(t, DefaultPerPage, cfg.Miner.PerPage)
	assert.Equal(t, DefaultStaggerDelay, cfg.Miner.StaggerDelay)
	assert.Equal(t, "partitions.yml", cfg.Miner.PartitionsFile)
	assert.Equal(t, DefaultMaxRetries, cfg.Miner.Retry.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, cfg.Miner.Retry.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, cfg.Miner.Retry.MaxDelay)

	assert.Equal(t, DefaultBatchSize, cfg.Publisher.BatchSize)
	assert.True(t, cfg.Git.Enabled)
	assert.Equal(t, "output", cfg.Paths.OutputDir)
	assert.Equal(t, "logs", cfg.Paths.LogDir)
	assert.Equal(t, "logs/runs", cfg.Paths.RunDir)
	assert.Equal(t, "logs/mining_status.log", cfg.Paths.StatusLog)
	assert.Equal(t, DefaultCronSpec, cfg.Scheduler.CronSpec)

	assert.Equal(t, DefaultBatchDelay, cfg.Backlog.BatchDelay)
	assert.Equal(t, "logs/publishing_progress.json", cfg.Backlog.ProgressFile)
	assert.Equal(t, 4, cfg.Backlog.CheckpointEvery)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("miner.threads", 8)
	v.Set("miner.stagger_delay", "500ms")
	v.Set("miner.command", []string{"python3", "rate_limited_register_miner.py"})
	v.Set("paths.output_dir", "/data/output")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Miner.Threads)
	assert.Equal(t, 500*time.Millisecond, cfg.Miner.StaggerDelay)
	assert.Equal(t, []string{"python3", "rate_limited_register_miner.py"}, cfg.Miner.Command)
	assert.Equal(t, "/data/output", cfg.Paths.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{
			name:    "zero threads",
			mutate:  func(v *viper.Viper) { v.Set("miner.threads", 0) },
			wantErr: "miner.threads",
		},
		{
			name:    "zero per_page",
			mutate:  func(v *viper.Viper) { v.Set("miner.per_page", 0) },
			wantErr: "miner.per_page",
		},
		{
			name:    "negative stagger",
			mutate:  func(v *viper.Viper) { v.Set("miner.stagger_delay", "-1s") },
			wantErr: "miner.stagger_delay",
		},
		{
			name:    "zero publisher batch",
			mutate:  func(v *viper.Viper) { v.Set("publisher.batch_size", 0) },
			wantErr: "publisher.batch_size",
		},
		{
			name:    "zero backlog batch",
			mutate:  func(v *viper.Viper) { v.Set("backlog.batch_size", 0) },
			wantErr: "backlog.batch_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			tt.mutate(v)

			_, err := FromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
