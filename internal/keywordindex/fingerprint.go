package keywordindex

import (
	"fmt"
	"sort"
	"strconv"
)

// PopulationStats are the row-population counters the fingerprint is built
// from. They depend only on which rows are in the corpus, never on row
// ordering, scores, or calibration constants.
type PopulationStats struct {
	ActiveRowCount   int
	EligibleRowCount int
	SumEligibleVol   float64
	SumWinnerVol     float64
}

// StatsFor computes population stats for a row set. Volume sums run in
// sorted order so two corpora that are equal as sets produce bit-identical
// sums regardless of how the rows arrived.
func StatsFor(rows []KeywordRow) PopulationStats {
	st := PopulationStats{}
	eligibleVols := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Active {
			st.ActiveRowCount++
		}
		if Eligible(r) {
			st.EligibleRowCount++
			eligibleVols = append(eligibleVols, *r.Volume)
		}
	}
	st.SumEligibleVol = orderedSum(eligibleVols)

	winnerVols := []float64{}
	for _, r := range DedupWinners(rows) {
		if Eligible(r) {
			winnerVols = append(winnerVols, *r.Volume)
		}
	}
	st.SumWinnerVol = orderedSum(winnerVols)
	return st
}

// Fingerprint derives the provenance signature of a row population.
// Two snapshots with identical fingerprints carry identical scores, apart
// from the separately locked trend.
func Fingerprint(windowID, categoryID string, st PopulationStats) string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%s",
		windowID, categoryID,
		st.ActiveRowCount, st.EligibleRowCount,
		formatVolume(st.SumEligibleVol), formatVolume(st.SumWinnerVol))
}

func orderedSum(vols []float64) float64 {
	sort.Float64s(vols)
	sum := 0.0
	for _, v := range vols {
		sum += v
	}
	return sum
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
