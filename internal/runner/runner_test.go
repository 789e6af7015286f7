package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsforge/registerminer/internal/config"
	"github.com/newsforge/registerminer/internal/logger"
	"github.com/newsforge/registerminer/internal/partition"
)

// testPlan builds a plan whose partition files live under dir.
func testPlan(t *testing.T, dir string, years ...string) *partition.Plan {
	t.Helper()
	plan := &partition.Plan{}
	for _, year := range years {
		plan.Partitions = append(plan.Partitions, partition.Partition{
			Year:       year,
			PageRanges: "1-5",
			DateRange:  year + "-01-01," + year + "-12-31",
			OutputFile: filepath.Join(dir, "federal_register_"+year+".txt"),
			LogFile:    filepath.Join(dir, "mining_"+year+".log"),
		})
	}
	return plan
}

// shellBuilder ignores the mining contract and runs a fixed shell snippet,
// optionally varied per year.
func shellBuilder(scripts map[string]string, fallback string) CommandBuilder {
	return func(p partition.Partition) []string {
		script, ok := scripts[p.Year]
		if !ok {
			script = fallback
		}
		return []string{"/bin/sh", "-c", script}
	}
}

func TestExecuteAllSuccess(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020", "2021", "2022")

	r := New(logger.NewNop(), shellBuilder(nil, "exit 0"), 0)
	run := NewRun(time.Now())

	require.NoError(t, r.Execute(context.Background(), run, plan))

	require.Len(t, run.Jobs, 3)
	for _, job := range run.Jobs {
		assert.Equal(t, StatusSuccess, job.Outcome().Status)
	}
	assert.Equal(t, AggregateAllSuccess, run.Aggregate())
}

func TestExecutePartialFailure(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020", "2021", "2022")

	r := New(logger.NewNop(), shellBuilder(map[string]string{"2021": "exit 17"}, "exit 0"), 0)
	run := NewRun(time.Now())

	// Job failure is not a run failure.
	require.NoError(t, r.Execute(context.Background(), run, plan))

	require.Len(t, run.Jobs, 3)
	var failed *Job
	for _, job := range run.Jobs {
		if job.Partition.Year == "2021" {
			failed = job
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, StatusFailed, failed.Outcome().Status)
	assert.Equal(t, 17, failed.Outcome().ExitCode)
	assert.Equal(t, "failed (exit code 17)", failed.Outcome().String())
	assert.Equal(t, AggregatePartialFailure, run.Aggregate())
}

func TestExecuteOneOutcomePerJob(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020", "2021", "2022", "2023")

	r := New(logger.NewNop(), shellBuilder(map[string]string{"2022": "exit 1"}, "exit 0"), 0)
	run := NewRun(time.Now())

	require.NoError(t, r.Execute(context.Background(), run, plan))

	assert.Len(t, run.Jobs, len(plan.Partitions))
	for _, job := range run.Jobs {
		assert.NotEqual(t, StatusPending, job.Outcome().Status,
			"job %s left pending after tracking", job.Partition.Year)
	}
}

func TestExecuteLaunchFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020")

	r := New(logger.NewNop(), func(p partition.Partition) []string {
		return []string{filepath.Join(dir, "no-such-binary")}
	}, 0)
	run := NewRun(time.Now())

	require.NoError(t, r.Execute(context.Background(), run, plan))

	require.Len(t, run.Jobs, 1)
	outcome := run.Jobs[0].Outcome()
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, -1, outcome.ExitCode)
	assert.Contains(t, outcome.String(), "failed")
	assert.Equal(t, AggregatePartialFailure, run.Aggregate())
}

func TestExecuteAbortTerminatesChildren(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020", "2021")

	r := New(logger.NewNop(), shellBuilder(nil, "sleep 30"), 0)
	run := NewRun(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := r.Execute(ctx, run, plan)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrAborted)
	assert.Less(t, elapsed, 10*time.Second, "abort should not wait for sleep to finish")

	require.Len(t, run.Jobs, 2)
	for _, job := range run.Jobs {
		assert.Equal(t, StatusFailed, job.Outcome().Status)
	}
	assert.Equal(t, AggregateAborted, run.Aggregate())
}

func TestExecuteCancelledBeforeLaunchSkipsRemaining(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020", "2021", "2022")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(logger.NewNop(), shellBuilder(nil, "exit 0"), 0)
	run := NewRun(time.Now())

	err := r.Execute(ctx, run, plan)
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, run.Jobs, "nothing should launch under a cancelled context")
}

func TestExecuteWritesJobLogs(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020")

	r := New(logger.NewNop(), shellBuilder(nil, "echo mining output; echo mining errors >&2"), 0)
	run := NewRun(time.Now())

	require.NoError(t, r.Execute(context.Background(), run, plan))

	data, err := os.ReadFile(plan.Partitions[0].LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mining output")
	assert.Contains(t, string(data), "mining errors")
}

func TestOutcomeWriteOnce(t *testing.T) {
	job := &Job{Partition: partition.Partition{Year: "2020"}}

	require.NoError(t, job.record(Outcome{Status: StatusSuccess}))
	err := job.record(Outcome{Status: StatusFailed, ExitCode: 1})
	require.Error(t, err)
	assert.Equal(t, StatusSuccess, job.Outcome().Status)
}

func TestMiningCommandContract(t *testing.T) {
	cfg := minerConfigForTest()
	build := MiningCommand(cfg)

	p := partition.Partition{
		Year:       "2021",
		PageRanges: "30-40,40-50",
		DateRange:  "2021-01-01,2021-12-31",
		OutputFile: "output/federal_register_2021.txt",
	}
	argv := build(p)

	joined := strings.Join(argv, " ")
	assert.True(t, strings.HasPrefix(joined, "python3 rate_limited_register_miner.py "))
	assert.Contains(t, joined, "--num-threads 4")
	assert.Contains(t, joined, "--page-ranges 30-40,40-50")
	assert.Contains(t, joined, "--date-range 2021-01-01,2021-12-31")
	assert.Contains(t, joined, "--per-page 100")
	assert.Contains(t, joined, "--output-file output/federal_register_2021.txt")
	assert.Contains(t, joined, "--max-retries 5")
	assert.Contains(t, joined, "--base-delay 2")
	assert.Contains(t, joined, "--max-delay 60")
}

func TestRunIDFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	run := NewRun(now)

	assert.True(t, strings.HasPrefix(run.ID, "20260830-120000-"), "got %s", run.ID)

	other := NewRun(now)
	assert.NotEqual(t, run.ID, other.ID, "two runs in the same second must not collide")
}

func TestSummaryFormat(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir, "2020", "2021")
	plan.Skipped = []partition.Skip{{Year: "2024", Reason: "no page ranges"}}

	r := New(logger.NewNop(), shellBuilder(map[string]string{"2021": "exit 17"}, "exit 0"), 0)
	run := NewRun(time.Now())
	require.NoError(t, r.Execute(context.Background(), run, plan))

	text := Summary(run)
	assert.Contains(t, text, "Year 2020: success")
	assert.Contains(t, text, "Year 2021: failed (exit code 17)")
	assert.Contains(t, text, "Year 2024: skipped (no page ranges)")
	assert.Contains(t, text, "outcome: partial failure")
	assert.Contains(t, text, plan.Partitions[0].LogFile)
	assert.Contains(t, text, plan.Partitions[0].OutputFile)
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "runs")
	statusLog := filepath.Join(dir, "mining_status.log")

	plan := testPlan(t, dir, "2020")
	r := New(logger.NewNop(), shellBuilder(nil, "exit 0"), 0)

	// Two runs append to the shared log; each gets its own summary file.
	var paths []string
	for i := 0; i < 2; i++ {
		run := NewRun(time.Now().Add(time.Duration(i) * time.Second))
		require.NoError(t, r.Execute(context.Background(), run, plan))
		path, err := WriteSummary(run, runDir, statusLog)
		require.NoError(t, err)
		paths = append(paths, path)
	}

	assert.NotEqual(t, paths[0], paths[1])
	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Year 2020: success")
	}

	shared, err := os.ReadFile(statusLog)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(shared), "Year 2020: success"))
}

func minerConfigForTest() config.MinerConfig {
	return config.MinerConfig{
		Command: []string{"python3", "rate_limited_register_miner.py"},
		Threads: 4,
		PerPage: 100,
		Retry: config.RetryPolicy{
			MaxRetries: 5,
			BaseDelay:  2 * time.Second,
			MaxDelay:   60 * time.Second,
		},
	}
}
