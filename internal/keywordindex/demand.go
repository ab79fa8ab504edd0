package keywordindex

import "math"

// Eligible reports whether a row contributes to demand: active with a known,
// finite, strictly positive volume. Unknown volume is ineligible, not zero.
func Eligible(r KeywordRow) bool {
	if !r.Active || r.Volume == nil {
		return false
	}
	v := *r.Volume
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// BuildDemandSet filters rows to the eligible set and caps any single row's
// contribution at maxShare of the eligible total. Capping is per-row and
// independent of processing order; the same rows and maxShare always produce
// the same set.
func BuildDemandSet(rows []KeywordRow, maxShare float64) DemandSet {
	eligible := make([]KeywordRow, 0, len(rows))
	for _, r := range rows {
		if Eligible(r) {
			eligible = append(eligible, r)
		}
	}

	ds := DemandSet{Rows: make([]DemandRow, 0, len(eligible))}
	for _, r := range eligible {
		ds.OriginalVolume += *r.Volume
	}

	capLimit := ds.OriginalVolume * maxShare
	for _, r := range eligible {
		dr := DemandRow{Row: r, VolumeUsed: *r.Volume, OriginalVolume: *r.Volume}
		if dr.VolumeUsed > capLimit {
			dr.VolumeUsed = capLimit
			dr.Capped = true
			ds.CappedKeywordCount++
		}
		ds.TotalVolumeUsed += dr.VolumeUsed
		ds.Rows = append(ds.Rows, dr)
	}
	return ds
}
