package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/newsforge/registerminer/internal/config"
	"github.com/newsforge/registerminer/internal/logger"
	"github.com/newsforge/registerminer/internal/partition"
)

// CommandBuilder produces the argv for one partition's subprocess.
// Tests inject their own builder; production code uses MiningCommand.
type CommandBuilder func(p partition.Partition) []string

// MiningCommand builds the external miner's command line per its contract:
// concurrency hint, page ranges, date range, output path, and the retry
// policy the miner applies against the upstream API.
func MiningCommand(cfg config.MinerConfig) CommandBuilder {
	return func(p partition.Partition) []string {
		args := append([]string{}, cfg.Command...)
		return append(args,
			"--num-threads", strconv.Itoa(cfg.Threads),
			"--page-ranges", p.PageRanges,
			"--date-range", p.DateRange,
			"--per-page", strconv.Itoa(cfg.PerPage),
			"--output-file", p.OutputFile,
			"--max-retries", strconv.Itoa(cfg.Retry.MaxRetries),
			"--base-delay", formatSeconds(cfg.Retry.BaseDelay),
			"--max-delay", formatSeconds(cfg.Retry.MaxDelay),
		)
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// Runner launches one subprocess per partition and waits for all of them.
type Runner struct {
	log     logger.Logger
	build   CommandBuilder
	stagger time.Duration
}

// New creates a runner. stagger is the fixed delay between successive job
// launches; it bounds burst load on the source the subprocesses talk to.
func New(log logger.Logger, build CommandBuilder, stagger time.Duration) *Runner {
	return &Runner{log: log, build: build, stagger: stagger}
}

type jobResult struct {
	job *Job
	err error
}

// Execute runs the whole plan: staggered fan-out, then a wait on every
// launched job. Individual job failures are recorded and tolerated; the only
// error return is ErrAborted after a cancellation, once every live child has
// been signalled and reaped. The outcome count always equals the number of
// launched jobs.
func (r *Runner) Execute(ctx context.Context, run *Run, plan *partition.Plan) error {
	run.Skipped = plan.Skipped
	for _, skip := range plan.Skipped {
		r.log.Info("Skipping partition",
			logger.String("year", skip.Year),
			logger.String("reason", skip.Reason))
	}

	results := make(chan jobResult, len(plan.Partitions))
	launched := 0

	for i, part := range plan.Partitions {
		if i > 0 && r.stagger > 0 {
			select {
			case <-time.After(r.stagger):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			r.log.Warn("Cancellation during launch phase, not starting remaining partitions",
				logger.Int("remaining", len(plan.Partitions)-i))
			run.Aborted = true
			break
		}

		job, err := r.launch(part)
		run.Jobs = append(run.Jobs, job)
		if err != nil {
			// Launch failures are job failures, not run failures.
			r.log.Error("Failed to start mining job",
				logger.String("year", part.Year),
				logger.Error(err))
			_ = job.record(Outcome{Status: StatusFailed, ExitCode: -1, Err: err})
			continue
		}

		launched++
		r.log.Info("Launched mining job",
			logger.String("year", part.Year),
			logger.Int("pid", job.cmd.Process.Pid),
			logger.String("log", part.LogFile))

		go func(j *Job) {
			results <- jobResult{job: j, err: j.cmd.Wait()}
		}(job)
	}

	r.track(ctx, run, results, launched)

	run.FinishedAt = time.Now().UTC()
	if run.Aborted {
		return fmt.Errorf("%w: %v", ErrAborted, context.Cause(ctx))
	}
	return nil
}

// launch starts one partition's subprocess with its output redirected to the
// partition's dedicated log file.
func (r *Runner) launch(part partition.Partition) (*Job, error) {
	job := &Job{Partition: part}

	argv := r.build(part)
	if len(argv) == 0 {
		return job, errors.New("empty mining command")
	}

	logFile, err := os.OpenFile(part.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return job, fmt.Errorf("open job log %s: %w", part.LogFile, err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return job, fmt.Errorf("start mining command: %w", err)
	}

	job.cmd = cmd
	job.logFile = logFile
	return job, nil
}

// track waits on every launched job exactly once so no child is left
// unreaped. On cancellation it signals all live children and keeps draining
// until each one has reported.
func (r *Runner) track(ctx context.Context, run *Run, results <-chan jobResult, launched int) {
	done := ctx.Done()
	waited := 0

	for waited < launched {
		select {
		case res := <-results:
			r.finish(res)
			waited++
		case <-done:
			run.Aborted = true
			r.terminate(run)
			// Children have been signalled; drain the remaining waits.
			done = nil
		}
	}
}

// finish records one job's outcome and releases its log file.
func (r *Runner) finish(res jobResult) {
	job := res.job
	outcome := Outcome{Status: StatusSuccess}

	if res.err != nil {
		var exitErr *exec.ExitError
		code := -1
		if errors.As(res.err, &exitErr) {
			code = exitErr.ExitCode()
		}
		outcome = Outcome{Status: StatusFailed, ExitCode: code, Err: res.err}
		r.log.Warn("Mining job failed",
			logger.String("year", job.Partition.Year),
			logger.Int("exit_code", code),
			logger.String("log", job.Partition.LogFile))
	} else {
		r.log.Info("Mining job completed",
			logger.String("year", job.Partition.Year),
			logger.String("output", job.Partition.OutputFile))
	}

	if err := job.record(outcome); err != nil {
		r.log.Error("Outcome recorded twice", logger.Error(err))
	}
	if job.logFile != nil {
		_ = job.logFile.Close()
		job.logFile = nil
	}
}

// terminate sends SIGTERM to every still-live child. Signalling an already
// exited process is ignored, so this is safe to race against job completion.
func (r *Runner) terminate(run *Run) {
	r.log.Warn("Aborting run, terminating live mining jobs")
	for _, job := range run.Jobs {
		if !job.alive() {
			continue
		}
		if err := job.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			continue
		}
		r.log.Info("Sent SIGTERM to mining job",
			logger.String("year", job.Partition.Year),
			logger.Int("pid", job.cmd.Process.Pid))
	}
}
