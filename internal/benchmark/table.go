// Package benchmark loads the versioned per-category calibration targets.
// The table is an external configuration artifact so recalibrated benchmarks
// can ship without code changes.
package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blustreamin/mci/internal/keywordindex"
)

type fileEntry struct {
	DemandMn   float64 `yaml:"demand_mn"`
	Readiness  float64 `yaml:"readiness"`
	Spread     float64 `yaml:"spread"`
	Trend5yPct float64 `yaml:"trend_5y_pct"`
}

type fileFormat struct {
	Version    string               `yaml:"version"`
	Categories map[string]fileEntry `yaml:"categories"`
}

// Table is an immutable benchmark lookup. It satisfies
// keywordindex.BenchmarkSource.
type Table struct {
	version string
	entries map[string]keywordindex.CategoryBenchmark
}

func Load(path string) (*Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark table: %w", err)
	}
	return Parse(blob)
}

func Parse(blob []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(blob, &f); err != nil {
		return nil, fmt.Errorf("decode benchmark table: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("benchmark table has no version")
	}

	t := &Table{version: f.Version, entries: map[string]keywordindex.CategoryBenchmark{}}
	for categoryID, e := range f.Categories {
		if e.DemandMn < 0 {
			return nil, fmt.Errorf("category %s: demand_mn must be >= 0", categoryID)
		}
		if e.Readiness < 1 || e.Readiness > 10 {
			return nil, fmt.Errorf("category %s: readiness must be in [1,10]", categoryID)
		}
		if e.Spread < 1 || e.Spread > 10 {
			return nil, fmt.Errorf("category %s: spread must be in [1,10]", categoryID)
		}
		t.entries[categoryID] = keywordindex.CategoryBenchmark{
			CategoryID: categoryID,
			DemandMn:   e.DemandMn,
			Readiness:  e.Readiness,
			Spread:     e.Spread,
			Trend5yPct: e.Trend5yPct,
		}
	}
	return t, nil
}

func (t *Table) Version() string { return t.version }

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Lookup(categoryID string) (keywordindex.CategoryBenchmark, bool) {
	b, ok := t.entries[categoryID]
	return b, ok
}

var _ keywordindex.BenchmarkSource = (*Table)(nil)
