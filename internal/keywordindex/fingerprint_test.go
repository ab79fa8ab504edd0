package keywordindex

import (
	"fmt"
	"strings"
	"testing"
)

func fingerprintCorpus() []KeywordRow {
	rows := make([]KeywordRow, 0, 40)
	for i := 0; i < 40; i++ {
		var v *float64
		if i%5 != 0 {
			v = vol(float64(100 + i*31))
		}
		rows = append(rows, KeywordRow{
			ID:       rowID(i),
			Text:     fmt.Sprintf("keyword %d", i),
			Volume:   v,
			AnchorID: fmt.Sprintf("anchor-%d", i%4),
			Active:   i%7 != 0,
		})
	}
	return rows
}

func TestFingerprintOrderIndependent(t *testing.T) {
	rows := fingerprintCorpus()
	shuffled := make([]KeywordRow, len(rows))
	for i, r := range rows {
		shuffled[(i*17+5)%len(rows)] = r
	}

	a := Fingerprint("2026-W10", "crm", StatsFor(rows))
	b := Fingerprint("2026-W10", "crm", StatsFor(shuffled))
	if a != b {
		t.Errorf("fingerprint depends on row order:\n%s\n%s", a, b)
	}
}

func TestFingerprintFormat(t *testing.T) {
	rows := []KeywordRow{
		{ID: "a", Text: "crm", Volume: vol(1000), Active: true},
		{ID: "b", Text: "crm!", Volume: vol(400), Active: true},
		{ID: "c", Text: "erp", Volume: nil, Active: true},
		{ID: "d", Text: "scm", Volume: vol(50), Active: false},
	}
	got := Fingerprint("2026-W10", "crm", StatsFor(rows))
	// 3 active, 2 eligible, eligible sum 1400, winner sum 1000 (dedup keeps
	// the 1000 row for "crm").
	want := "2026-W10:crm:3:2:1400:1000"
	if got != want {
		t.Errorf("fingerprint = %q, want %q", got, want)
	}
}

func TestFingerprintChangesWithPopulation(t *testing.T) {
	rows := fingerprintCorpus()
	base := Fingerprint("2026-W10", "crm", StatsFor(rows))
	mutated := Fingerprint("2026-W10", "crm", StatsFor(rows[:len(rows)-1]))
	if base == mutated {
		t.Error("fingerprint did not change after removing a row")
	}
	otherWindow := Fingerprint("2026-W11", "crm", StatsFor(rows))
	if base == otherWindow {
		t.Error("fingerprint should include the window")
	}
	if !strings.HasPrefix(base, "2026-W10:crm:") {
		t.Errorf("unexpected prefix: %s", base)
	}
}
