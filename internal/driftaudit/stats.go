package driftaudit

import (
	"math"
	"sort"
)

// SeriesStats summarizes a metric series collected across repeated runs.
type SeriesStats struct {
	Runs         int     `json:"runs"`
	Median       float64 `json:"median"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Stdev        float64 `json:"stdev"`
	DeviationPct float64 `json:"deviation_pct"`
}

// ComputeStats reduces a series to its order statistics and relative drift.
// Stdev uses the sample (n-1) denominator. DeviationPct is (max-min)/|median|
// as a percentage; an all-zero series has zero deviation, a zero median over
// a non-zero series is unbounded drift.
func ComputeStats(series []float64) SeriesStats {
	st := SeriesStats{Runs: len(series)}
	if len(series) == 0 {
		return st
	}

	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.Median = medianSorted(sorted)
	st.Stdev = sampleStdev(series)

	switch {
	case st.Median != 0:
		st.DeviationPct = (st.Max - st.Min) / math.Abs(st.Median) * 100
	case st.Min == 0 && st.Max == 0:
		st.DeviationPct = 0
	default:
		st.DeviationPct = math.Inf(1)
	}
	return st
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sampleStdev(series []float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range series {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
