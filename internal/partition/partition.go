// Package partition plans the units of work for a mining run.
// A partition is one year's date range plus a page-range split; each planned
// partition maps to exactly one subprocess for the lifetime of a run.
package partition

import (
	"fmt"
	"strconv"
	"strings"
)

// Partition is an immutable unit of work assigned to exactly one job.
type Partition struct {
	// Year is the partition key, e.g. "2021".
	Year string
	// PageRanges is the validated work-range descriptor, e.g. "30-40,40-50".
	PageRanges string
	// DateRange bounds the year, "YYYY-01-01,YYYY-12-31".
	DateRange string
	// OutputFile is the backlog file this partition's subprocess writes.
	OutputFile string
	// LogFile captures the subprocess's stdout and stderr.
	LogFile string
}

// Skip records a partition key that was planned away rather than launched.
// Partial configuration (a new year with no assigned ranges yet) is a
// deliberate no-op, not an error.
type Skip struct {
	Year   string
	Reason string
}

// Range is one inclusive page span.
type Range struct {
	Start int
	End   int
}

// ParseRanges converts a comma-separated range string into inclusive spans.
// Example: "30-40,40-50" -> [{30 40} {40 50}]. A bare number is a
// single-page span.
func ParseRanges(s string) ([]Range, error) {
	var parsed []Range
	for _, part := range strings.Split(s, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}

		var start, end int
		if strings.Contains(token, "-") {
			startRaw, endRaw, _ := strings.Cut(token, "-")
			var err error
			start, err = strconv.Atoi(strings.TrimSpace(startRaw))
			if err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", token, err)
			}
			end, err = strconv.Atoi(strings.TrimSpace(endRaw))
			if err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", token, err)
			}
		} else {
			val, err := strconv.Atoi(token)
			if err != nil {
				return nil, fmt.Errorf("invalid page %q: %w", token, err)
			}
			start, end = val, val
		}

		if start > end {
			return nil, fmt.Errorf("range start %d greater than end %d in %q", start, end, token)
		}
		parsed = append(parsed, Range{Start: start, End: end})
	}

	if len(parsed) == 0 {
		return nil, fmt.Errorf("no page ranges in %q", s)
	}
	return parsed, nil
}

// DateRangeForYear returns the full-year date range descriptor passed to the
// mining subprocess.
func DateRangeForYear(year string) (string, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1900 || y > 2999 {
		return "", fmt.Errorf("invalid year %q", year)
	}
	return fmt.Sprintf("%d-01-01,%d-12-31", y, y), nil
}
