// Package runner implements the partitioned fan-out job runner: it launches
// one mining subprocess per planned partition, waits on all of them, and
// aggregates a per-run summary.
package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/newsforge/registerminer/internal/partition"
)

// Status is a job's lifecycle state.
type Status int

const (
	// StatusPending means the job has not been waited on yet.
	StatusPending Status = iota
	// StatusSuccess means the subprocess exited zero.
	StatusSuccess
	// StatusFailed means the subprocess exited non-zero or never started.
	StatusFailed
)

// Outcome is a job's final result. It is written exactly once by the tracker.
type Outcome struct {
	Status   Status
	ExitCode int
	Err      error
}

// String renders the outcome the way it appears in run summaries.
func (o Outcome) String() string {
	switch o.Status {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		if o.ExitCode >= 0 {
			return fmt.Sprintf("failed (exit code %d)", o.ExitCode)
		}
		if o.Err != nil {
			// Signal-terminated and never-started jobs have no exit code;
			// the error text ("signal: terminated", "fork/exec ...") is the
			// most useful thing to show.
			return fmt.Sprintf("failed (%v)", o.Err)
		}
		return "failed"
	default:
		return "pending"
	}
}

// Job is the runtime instance created to execute one partition.
// A partition maps to exactly one job for the lifetime of a run.
type Job struct {
	Partition partition.Partition

	cmd      *exec.Cmd
	logFile  *os.File
	outcome  Outcome
	recorded bool
}

// Outcome returns the job's recorded outcome, or a pending outcome if the
// tracker has not reached it yet.
func (j *Job) Outcome() Outcome {
	return j.outcome
}

// record stores the job's outcome. Outcomes are write-once; a second call is
// a tracker bug.
func (j *Job) record(o Outcome) error {
	if j.recorded {
		return fmt.Errorf("outcome for partition %s already recorded", j.Partition.Year)
	}
	j.outcome = o
	j.recorded = true
	return nil
}

// alive reports whether the subprocess was started and has not been reaped.
func (j *Job) alive() bool {
	return !j.recorded && j.cmd != nil && j.cmd.Process != nil
}

// Aggregate is a run's overall outcome.
type Aggregate string

const (
	// AggregateAllSuccess means every partition succeeded.
	AggregateAllSuccess Aggregate = "all success"
	// AggregatePartialFailure means at least one partition failed.
	// Partial failure never blocks the downstream publish step.
	AggregatePartialFailure Aggregate = "partial failure"
	// AggregateAborted means the run was cancelled before completing.
	AggregateAborted Aggregate = "aborted"
)

// Run is one full execution across all partitions.
type Run struct {
	// ID identifies the run; it is timestamp-derived with a random suffix
	// so two runs started within the same second cannot collide.
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Jobs       []*Job
	Skipped    []partition.Skip
	Aborted    bool
}

// NewRun creates a run record with a fresh identifier.
func NewRun(now time.Time) *Run {
	return &Run{
		ID:        fmt.Sprintf("%s-%s", now.UTC().Format("20060102-150405"), uuid.NewString()[:8]),
		StartedAt: now.UTC(),
	}
}

// Aggregate computes the run's overall outcome from its job outcomes.
func (r *Run) Aggregate() Aggregate {
	if r.Aborted {
		return AggregateAborted
	}
	for _, job := range r.Jobs {
		if job.Outcome().Status != StatusSuccess {
			return AggregatePartialFailure
		}
	}
	return AggregateAllSuccess
}

// ErrAborted is returned by Execute when the run was cancelled and all live
// subprocesses have been terminated.
var ErrAborted = errors.New("run aborted")
