package keywordindex

import (
	"context"
	"strings"
)

// ComputeRequest identifies one metrics computation: which category, which
// reporting window, and which corpus snapshot to score.
type ComputeRequest struct {
	CategoryID       string `json:"category_id"`
	WindowID         string `json:"window_id"`
	CorpusSnapshotID string `json:"corpus_snapshot_id"`
}

// Pipeline runs the full reduction: corpus load, canonicalization, demand
// set, scoring, trend resolution, calibration, snapshot persistence. The
// scoring stages are pure and synchronous; all I/O sits at the edges.
type Pipeline struct {
	corpus     CorpusProvider
	benchmarks BenchmarkSource
	trends     *TrendResolver
	snapshots  SnapshotStore
	cfg        Config
}

func NewPipeline(corpus CorpusProvider, benchmarks BenchmarkSource, trends *TrendResolver, snapshots SnapshotStore, cfg Config) *Pipeline {
	if trends == nil {
		trends = NewTrendResolver(nil, nil)
	}
	return &Pipeline{
		corpus:     corpus,
		benchmarks: benchmarks,
		trends:     trends,
		snapshots:  snapshots,
		cfg:        cfg.withDefaults(),
	}
}

// WithOfflineTrends returns a pipeline that resolves every trend to the
// deterministic offline default. Snapshot writes are disabled too: audit
// iterations must not clobber the stored score for the window.
func (p *Pipeline) WithOfflineTrends() *Pipeline {
	cp := *p
	cp.trends = p.trends.Offline()
	cp.snapshots = nil
	return &cp
}

// Compute scores one category at one window. A populated corpus with zero
// eligible rows is not an error: the snapshot completes with zero demand and
// the MissingInputs flag, and calibration is skipped so the zero stays
// visible.
func (p *Pipeline) Compute(ctx context.Context, req ComputeRequest) (MetricsSnapshot, error) {
	if strings.TrimSpace(req.CategoryID) == "" {
		return MetricsSnapshot{}, NewValidationError("category_id is required")
	}
	if strings.TrimSpace(req.WindowID) == "" {
		return MetricsSnapshot{}, NewValidationError("window_id is required")
	}

	rows, err := p.corpus.LoadRows(ctx, req.CategoryID, req.CorpusSnapshotID)
	if err != nil {
		return MetricsSnapshot{}, NewStorageError("load corpus rows", err)
	}
	if len(rows) == 0 {
		return MetricsSnapshot{}, NewEmptyCorpusError(req.CategoryID, req.CorpusSnapshotID)
	}

	snap := p.score(req, rows)
	trend := p.trends.Resolve(ctx, req.CategoryID)
	snap.TrendPercent = trend.Percent
	snap.TrendLabel = trend.Label
	snap.TrendSource = trend.Source

	snap = calibrateSnapshot(snap, p.benchmarks, p.cfg)

	if p.snapshots != nil {
		if err := p.snapshots.PutSnapshot(ctx, snap); err != nil {
			return snap, NewStorageError("persist snapshot", err)
		}
	}
	return snap, nil
}

// score is the pure reduction from rows to raw (pre-calibration) metrics.
func (p *Pipeline) score(req ComputeRequest, rows []KeywordRow) MetricsSnapshot {
	winners := DedupWinners(rows)
	ds := BuildDemandSet(rows, p.cfg.MaxShare)
	stats := StatsFor(rows)

	audit := DemandAudit{
		TotalRowCount:      len(rows),
		ActiveRowCount:     stats.ActiveRowCount,
		EligibleRowCount:   stats.EligibleRowCount,
		WinnerCount:        len(winners),
		CappedKeywordCount: ds.CappedKeywordCount,
		OriginalVolume:     ds.OriginalVolume,
		TotalVolumeUsed:    ds.TotalVolumeUsed,
		MissingInputs:      stats.EligibleRowCount == 0,
	}

	return MetricsSnapshot{
		CategoryID:        req.CategoryID,
		WindowID:          req.WindowID,
		CorpusSnapshotID:  req.CorpusSnapshotID,
		CorpusFingerprint: Fingerprint(req.WindowID, req.CategoryID, stats),
		DemandIndexMn:     DemandIndexMn(ds),
		Readiness:         ReadinessScore(winners),
		Spread:            SpreadScore(winners),
		ComputedAt:        p.cfg.Clock().UTC(),
		DemandAudit:       audit,
	}
}
