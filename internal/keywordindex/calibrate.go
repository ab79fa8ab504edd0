package keywordindex

// Calibrate blends a raw score with its benchmark target. Partial corpora
// under-sample true category volume; anchoring on the benchmark keeps output
// comparable across corpus sizes while still reflecting measured variation.
func Calibrate(raw, benchmark float64, cfg Config) float64 {
	return cfg.RawWeight*raw + cfg.BenchmarkWeight*benchmark
}

// calibrateSnapshot applies the benchmark blend to every metric on the
// snapshot. Raw scores pass through unchanged when the category has no
// benchmark, and a missing-inputs snapshot is never calibrated: blending
// zero demand toward a nonzero target would fabricate a plausible-looking
// score from no signal.
func calibrateSnapshot(snap MetricsSnapshot, benchmarks BenchmarkSource, cfg Config) MetricsSnapshot {
	if benchmarks == nil || snap.DemandAudit.MissingInputs {
		return snap
	}
	b, ok := benchmarks.Lookup(snap.CategoryID)
	if !ok {
		return snap
	}

	snap.DemandIndexMn = Calibrate(snap.DemandIndexMn, b.DemandMn, cfg)
	snap.Readiness = Calibrate(snap.Readiness, b.Readiness, cfg)
	snap.Spread = Calibrate(snap.Spread, b.Spread, cfg)
	if snap.TrendPercent != nil {
		blended := Calibrate(*snap.TrendPercent, b.Trend5yPct, cfg)
		snap.TrendPercent = &blended
		snap.TrendLabel = TrendLabelFor(snap.TrendPercent)
	}
	snap.DemandAudit.BenchmarkApplied = true
	return snap
}
