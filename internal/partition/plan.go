package partition

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Plan is the ordered set of partitions for one run, plus the keys that were
// configured but carry no work.
type Plan struct {
	Partitions []Partition
	Skipped    []Skip
}

// Table is the static partition configuration: an ordered list of year keys
// and the page ranges assigned to each.
type Table struct {
	Keys   []string
	Ranges map[string]string
}

// NewPlan expands a partition table into launchable partitions.
// Keys with a missing or empty page-range string are recorded as skipped;
// invalid range descriptors or years fail the whole plan, since launching a
// subset silently would skew the run summary.
func NewPlan(table Table, outputDir, logDir, runID string) (*Plan, error) {
	plan := &Plan{}
	seen := make(map[string]struct{}, len(table.Keys))

	for _, year := range table.Keys {
		if _, dup := seen[year]; dup {
			return nil, fmt.Errorf("duplicate partition key %q", year)
		}
		seen[year] = struct{}{}

		ranges, ok := table.Ranges[year]
		if !ok || strings.TrimSpace(ranges) == "" {
			plan.Skipped = append(plan.Skipped, Skip{Year: year, Reason: "no page ranges"})
			continue
		}

		if _, err := ParseRanges(ranges); err != nil {
			return nil, fmt.Errorf("partition %q: %w", year, err)
		}
		dateRange, err := DateRangeForYear(year)
		if err != nil {
			return nil, err
		}

		plan.Partitions = append(plan.Partitions, Partition{
			Year:       year,
			PageRanges: strings.TrimSpace(ranges),
			DateRange:  dateRange,
			OutputFile: filepath.Join(outputDir, fmt.Sprintf("federal_register_%s.txt", year)),
			LogFile:    filepath.Join(logDir, fmt.Sprintf("mining_%s_%s.log", year, runID)),
		})
	}

	return plan, nil
}
