package keywordindex

import (
	"context"
	"time"
)

const (
	defaultMaxShare        = 0.05
	defaultRawWeight       = 0.3
	defaultBenchmarkWeight = 0.7
)

type TrendSource string

const (
	TrendSourceFresh   TrendSource = "FRESH"
	TrendSourceLocked  TrendSource = "LOCKED"
	TrendSourceDefault TrendSource = "DEFAULT"
)

const (
	TrendLabelGrowing   = "Growing"
	TrendLabelDeclining = "Declining"
	TrendLabelStable    = "Stable"
	TrendLabelUnknown   = "Unknown"
)

// KeywordRow is one search-keyword record after the ingestion boundary has
// validated it. Volume is nil when the source reported no usable number;
// nil is "unknown", never zero.
type KeywordRow struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Volume       *float64 `json:"volume"`
	AnchorID     string   `json:"anchor_id"`
	IntentBucket string   `json:"intent_bucket"`
	Active       bool     `json:"active"`
}

// DemandRow is an eligible row's contribution to the demand aggregate.
// OriginalVolume keeps the pre-cap value for auditing.
type DemandRow struct {
	Row            KeywordRow `json:"row"`
	VolumeUsed     float64    `json:"volume_used"`
	OriginalVolume float64    `json:"original_volume"`
	Capped         bool       `json:"capped"`
}

type DemandSet struct {
	Rows               []DemandRow `json:"rows"`
	TotalVolumeUsed    float64     `json:"total_volume_used"`
	OriginalVolume     float64     `json:"original_volume"`
	CappedKeywordCount int         `json:"capped_keyword_count"`
}

// CategoryBenchmark is the fixed external reference target for one category.
type CategoryBenchmark struct {
	CategoryID string  `json:"category_id"`
	DemandMn   float64 `json:"demand_mn"`
	Readiness  float64 `json:"readiness"`
	Spread     float64 `json:"spread"`
	Trend5yPct float64 `json:"trend_5y_pct"`
}

type TrendResult struct {
	Percent *float64    `json:"percent"`
	Label   string      `json:"label"`
	Source  TrendSource `json:"source"`
}

// DemandAudit carries the counters the pipeline accumulated while building
// the demand set, so a snapshot can be explained without re-running it.
type DemandAudit struct {
	TotalRowCount      int     `json:"total_row_count"`
	ActiveRowCount     int     `json:"active_row_count"`
	EligibleRowCount   int     `json:"eligible_row_count"`
	WinnerCount        int     `json:"winner_count"`
	CappedKeywordCount int     `json:"capped_keyword_count"`
	OriginalVolume     float64 `json:"original_volume"`
	TotalVolumeUsed    float64 `json:"total_volume_used"`
	MissingInputs      bool    `json:"missing_inputs"`
	BenchmarkApplied   bool    `json:"benchmark_applied"`
}

// MetricsSnapshot is the scored output for one (category, window)
// computation. Logically immutable: recomputation produces a new snapshot
// under the same (category, window) key.
type MetricsSnapshot struct {
	CategoryID        string      `json:"category_id"`
	WindowID          string      `json:"window_id"`
	CorpusSnapshotID  string      `json:"corpus_snapshot_id"`
	CorpusFingerprint string      `json:"corpus_fingerprint"`
	DemandIndexMn     float64     `json:"demand_index_mn"`
	Readiness         float64     `json:"readiness"`
	Spread            float64     `json:"spread"`
	TrendPercent      *float64    `json:"trend_percent"`
	TrendLabel        string      `json:"trend_label"`
	TrendSource       TrendSource `json:"trend_source"`
	ComputedAt        time.Time   `json:"computed_at"`
	DemandAudit       DemandAudit `json:"demand_audit"`
}

// Config carries the tunable constants of the pipeline. The blend weights
// and the cap share are configuration with observed defaults, not fixed
// semantics.
type Config struct {
	MaxShare        float64
	RawWeight       float64
	BenchmarkWeight float64
	Clock           func() time.Time
}

func DefaultConfig() Config {
	return Config{
		MaxShare:        defaultMaxShare,
		RawWeight:       defaultRawWeight,
		BenchmarkWeight: defaultBenchmarkWeight,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxShare <= 0 || c.MaxShare > 1 {
		c.MaxShare = defaultMaxShare
	}
	if c.RawWeight <= 0 && c.BenchmarkWeight <= 0 {
		c.RawWeight = defaultRawWeight
		c.BenchmarkWeight = defaultBenchmarkWeight
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// CorpusProvider returns the complete row list for a category at a given
// corpus snapshot. Rows are assumed validated but not deduplicated;
// canonicalization always runs in the pipeline.
type CorpusProvider interface {
	LoadRows(ctx context.Context, categoryID, corpusSnapshotID string) ([]KeywordRow, error)
}

// SnapshotStore persists scored snapshots keyed by (category, window).
// Writes must be idempotent.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, snap MetricsSnapshot) error
}

// BenchmarkSource is the static per-category benchmark lookup.
type BenchmarkSource interface {
	Lookup(categoryID string) (CategoryBenchmark, bool)
}
