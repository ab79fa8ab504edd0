package keywordindex

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type stubCorpus struct {
	rows map[string][]KeywordRow
	err  error
}

func (c *stubCorpus) LoadRows(_ context.Context, categoryID, _ string) ([]KeywordRow, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.rows[categoryID], nil
}

type captureSnapshots struct {
	puts []MetricsSnapshot
}

func (s *captureSnapshots) PutSnapshot(_ context.Context, snap MetricsSnapshot) error {
	s.puts = append(s.puts, snap)
	return nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func testCorpus() []KeywordRow {
	rows := make([]KeywordRow, 0, 60)
	for i := 0; i < 60; i++ {
		bucket := "informational"
		if i%3 == 0 {
			bucket = "transactional"
		}
		rows = append(rows, KeywordRow{
			ID:           rowID(i),
			Text:         fmt.Sprintf("keyword %d", i),
			Volume:       vol(float64(5_000 + i*211)),
			AnchorID:     fmt.Sprintf("anchor-%d", i%5),
			IntentBucket: bucket,
			Active:       true,
		})
	}
	return rows
}

func newTestPipeline(corpus CorpusProvider, benchmarks BenchmarkSource, snaps SnapshotStore) *Pipeline {
	cfg := DefaultConfig()
	cfg.Clock = fixedClock()
	trends := NewTrendResolver(&stubOracle{percent: 1.2}, NewMemoryLockStore())
	return NewPipeline(corpus, benchmarks, trends, snaps, cfg)
}

func TestComputeDeterministic(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]KeywordRow{"crm": testCorpus()}}
	p := newTestPipeline(corpus, mapBenchmarks{}, nil)
	req := ComputeRequest{CategoryID: "crm", WindowID: "2026-W31", CorpusSnapshotID: "snap-1"}

	a, err := p.Compute(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Compute(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if a.DemandIndexMn != b.DemandIndexMn || a.Readiness != b.Readiness || a.Spread != b.Spread {
		t.Errorf("scores differ between identical runs:\n%+v\n%+v", a, b)
	}
	if a.CorpusFingerprint != b.CorpusFingerprint {
		t.Errorf("fingerprints differ: %s vs %s", a.CorpusFingerprint, b.CorpusFingerprint)
	}
	if a.TrendPercent == nil || b.TrendPercent == nil || *a.TrendPercent != *b.TrendPercent {
		t.Errorf("trend differs despite lock: %v vs %v", a.TrendPercent, b.TrendPercent)
	}
}

func TestComputeEmptyCorpus(t *testing.T) {
	snaps := &captureSnapshots{}
	p := newTestPipeline(&stubCorpus{rows: map[string][]KeywordRow{}}, mapBenchmarks{}, snaps)

	_, err := p.Compute(context.Background(), ComputeRequest{CategoryID: "crm", WindowID: "w"})
	if err == nil {
		t.Fatal("expected empty corpus error")
	}
	if CodeOf(err) != CodeEmptyCorpus {
		t.Errorf("code = %s, want %s", CodeOf(err), CodeEmptyCorpus)
	}
	if len(snaps.puts) != 0 {
		t.Error("snapshot written for empty corpus")
	}
}

func TestComputeMissingInputs(t *testing.T) {
	rows := make([]KeywordRow, 0, 500)
	for i := 0; i < 500; i++ {
		rows = append(rows, KeywordRow{ID: rowID(i), Text: fmt.Sprintf("kw %d", i), Volume: nil, Active: true})
	}
	benchmarks := mapBenchmarks{"crm": {CategoryID: "crm", DemandMn: 12, Readiness: 7, Spread: 6}}
	snaps := &captureSnapshots{}
	p := newTestPipeline(&stubCorpus{rows: map[string][]KeywordRow{"crm": rows}}, benchmarks, snaps)

	snap, err := p.Compute(context.Background(), ComputeRequest{CategoryID: "crm", WindowID: "w"})
	if err != nil {
		t.Fatalf("missing inputs must not error: %v", err)
	}
	if snap.DemandIndexMn != 0 {
		t.Errorf("demand = %f, want 0", snap.DemandIndexMn)
	}
	if !snap.DemandAudit.MissingInputs {
		t.Error("missing_inputs flag not set")
	}
	if snap.DemandAudit.BenchmarkApplied {
		t.Error("benchmark must not dress up a missing-inputs snapshot")
	}
	if len(snaps.puts) != 1 {
		t.Fatalf("snapshot writes = %d, want 1", len(snaps.puts))
	}
}

func TestComputeValidatesRequest(t *testing.T) {
	p := newTestPipeline(&stubCorpus{}, mapBenchmarks{}, nil)
	if _, err := p.Compute(context.Background(), ComputeRequest{WindowID: "w"}); CodeOf(err) != CodeValidation {
		t.Errorf("missing category: code = %v", CodeOf(err))
	}
	if _, err := p.Compute(context.Background(), ComputeRequest{CategoryID: "crm"}); CodeOf(err) != CodeValidation {
		t.Errorf("missing window: code = %v", CodeOf(err))
	}
}

func TestComputeAppliesCalibration(t *testing.T) {
	benchmarks := mapBenchmarks{"crm": {CategoryID: "crm", DemandMn: 10, Readiness: 7, Spread: 6, Trend5yPct: 1.0}}
	corpus := &stubCorpus{rows: map[string][]KeywordRow{"crm": testCorpus()}}

	rawPipe := newTestPipeline(corpus, nil, nil)
	calPipe := newTestPipeline(corpus, benchmarks, nil)
	req := ComputeRequest{CategoryID: "crm", WindowID: "w"}

	raw, err := rawPipe.Compute(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	cal, err := calPipe.Compute(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	approx(t, cal.DemandIndexMn, 0.3*raw.DemandIndexMn+0.7*10, 1e-9, "calibrated demand")
	approx(t, cal.Readiness, 0.3*raw.Readiness+0.7*7, 1e-9, "calibrated readiness")
	approx(t, cal.Spread, 0.3*raw.Spread+0.7*6, 1e-9, "calibrated spread")
	if raw.CorpusFingerprint != cal.CorpusFingerprint {
		t.Error("calibration must not touch the fingerprint")
	}
}

func TestWithOfflineTrends(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]KeywordRow{"crm": testCorpus()}}
	snaps := &captureSnapshots{}
	p := newTestPipeline(corpus, mapBenchmarks{}, snaps).WithOfflineTrends()

	snap, err := p.Compute(context.Background(), ComputeRequest{CategoryID: "crm", WindowID: "w"})
	if err != nil {
		t.Fatal(err)
	}
	if snap.TrendSource != TrendSourceDefault || snap.TrendLabel != TrendLabelStable || snap.TrendPercent != nil {
		t.Errorf("offline trend = %s/%s/%v", snap.TrendSource, snap.TrendLabel, snap.TrendPercent)
	}
	if len(snaps.puts) != 0 {
		t.Error("offline pipeline wrote a snapshot")
	}
}
