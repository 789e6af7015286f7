package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Summary renders the run's per-partition status lines.
// One line per partition key (`Year <id>: <status>`) with log and output
// path references, matching the shared status log format.
func Summary(run *Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s | started %s | finished %s | outcome: %s\n",
		run.ID,
		run.StartedAt.Format("2006-01-02 15:04:05Z"),
		run.FinishedAt.Format("2006-01-02 15:04:05Z"),
		run.Aggregate())

	for _, job := range run.Jobs {
		fmt.Fprintf(&b, "Year %s: %s\n", job.Partition.Year, job.Outcome())
		fmt.Fprintf(&b, "  log: %s\n", job.Partition.LogFile)
		fmt.Fprintf(&b, "  output: %s\n", job.Partition.OutputFile)
	}
	for _, skip := range run.Skipped {
		fmt.Fprintf(&b, "Year %s: skipped (%s)\n", skip.Year, skip.Reason)
	}

	return b.String()
}

// WriteSummary persists the run summary twice: overwritten to a dedicated
// per-run file under runDir, and appended to the shared cumulative status
// log. Only the orchestrator writes either file, so no locking is needed.
// It returns the per-run summary path.
func WriteSummary(run *Run, runDir, statusLog string) (string, error) {
	text := Summary(run)

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir %s: %w", runDir, err)
	}
	summaryPath := filepath.Join(runDir, fmt.Sprintf("run_%s.txt", run.ID))
	if err := os.WriteFile(summaryPath, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write run summary %s: %w", summaryPath, err)
	}

	f, err := os.OpenFile(statusLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return summaryPath, fmt.Errorf("open status log %s: %w", statusLog, err)
	}
	defer f.Close()
	if _, err := f.WriteString(text + "\n"); err != nil {
		return summaryPath, fmt.Errorf("append status log %s: %w", statusLog, err)
	}

	return summaryPath, nil
}
