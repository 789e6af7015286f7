// Package backlog drains the historical publishing backlog: it rotates
// through the configured years, publishing one batch per year per cycle so
// no single year starves the others, and persists progress between runs.
package backlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/newsforge/registerminer/internal/config"
)

// YearProgress tracks one year's share of the backlog.
type YearProgress struct {
	Published int `json:"published"`
	Total     int `json:"total"`
	LastBatch int `json:"last_batch"`
}

// Progress is the on-disk publishing progress record.
type Progress struct {
	Years          map[string]*YearProgress `json:"years"`
	TotalPublished int                      `json:"total_published"`
	TotalRemaining int                      `json:"total_remaining"`
	LastUpdate     time.Time                `json:"last_update"`
}

// LoadProgress reads the progress file, or seeds a fresh record from the
// configured year quotas when none exists yet.
func LoadProgress(path string, quotas []config.YearQuota) (*Progress, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newProgress(quotas), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress file %s: %w", path, err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse progress file %s: %w", path, err)
	}
	if p.Years == nil {
		p.Years = make(map[string]*YearProgress)
	}

	// Years added to the config after the file was written get fresh
	// counters; totals of known years are never overwritten.
	for _, q := range quotas {
		if _, ok := p.Years[q.Year]; !ok {
			p.Years[q.Year] = &YearProgress{Total: q.Total}
			p.TotalRemaining += q.Total
		}
	}
	return &p, nil
}

func newProgress(quotas []config.YearQuota) *Progress {
	p := &Progress{Years: make(map[string]*YearProgress, len(quotas))}
	for _, q := range quotas {
		p.Years[q.Year] = &YearProgress{Total: q.Total}
		p.TotalRemaining += q.Total
	}
	return p
}

// Save writes the progress record to disk.
func (p *Progress) Save(path string) error {
	p.LastUpdate = time.Now().UTC()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create progress dir %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write progress file %s: %w", path, err)
	}
	return nil
}

// Remaining returns how many documents are still unpublished for a year.
func (p *Progress) Remaining(year string) int {
	yp, ok := p.Years[year]
	if !ok {
		return 0
	}
	rem := yp.Total - yp.Published
	if rem < 0 {
		return 0
	}
	return rem
}

// Apply records one successfully published batch.
func (p *Progress) Apply(year string, batchSize int) {
	yp, ok := p.Years[year]
	if !ok {
		return
	}
	yp.Published += batchSize
	yp.LastBatch = batchSize
	p.TotalPublished += batchSize
	p.TotalRemaining -= batchSize
	if p.TotalRemaining < 0 {
		p.TotalRemaining = 0
	}
}
