package keywordindex

import (
	"regexp"
	"sort"
	"strings"
)

var (
	nonCanonicalRE  = regexp.MustCompile(`[^\w\s-]+`)
	whitespaceRunRE = regexp.MustCompile(`\s+`)
)

// CanonicalKey reduces raw keyword text to its dedup identity. The key, not
// the surface text, decides whether two rows refer to the same term.
func CanonicalKey(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonCanonicalRE.ReplaceAllString(s, "")
	s = whitespaceRunRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DedupWinners selects one winner per canonical key: the highest-volume row,
// with equal volumes broken by row ID so the result does not depend on input
// order. Rows with unknown volume lose to any row with a known volume.
// Winners are returned sorted by canonical key.
func DedupWinners(rows []KeywordRow) []KeywordRow {
	winners := map[string]KeywordRow{}
	for _, row := range rows {
		key := CanonicalKey(row.Text)
		current, ok := winners[key]
		if !ok || beats(row, current) {
			winners[key] = row
		}
	}

	keys := make([]string, 0, len(winners))
	for key := range winners {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]KeywordRow, 0, len(keys))
	for _, key := range keys {
		out = append(out, winners[key])
	}
	return out
}

func beats(a, b KeywordRow) bool {
	av, bv := volumeOrZero(a), volumeOrZero(b)
	if av != bv {
		return av > bv
	}
	if (a.Volume == nil) != (b.Volume == nil) {
		return b.Volume == nil
	}
	return a.ID < b.ID
}

func volumeOrZero(r KeywordRow) float64 {
	if r.Volume == nil {
		return 0
	}
	return *r.Volume
}
