package driftaudit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/blustreamin/mci/internal/keywordindex"
)

func vol(v float64) *float64 { return &v }

type stubCorpus struct {
	mu    sync.Mutex
	rows  map[string][]keywordindex.KeywordRow
	loads map[string]int
}

func (c *stubCorpus) LoadRows(_ context.Context, categoryID, _ string) ([]keywordindex.KeywordRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loads == nil {
		c.loads = map[string]int{}
	}
	c.loads[categoryID]++
	return c.rows[categoryID], nil
}

func stableCorpus(n int) []keywordindex.KeywordRow {
	rows := make([]keywordindex.KeywordRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, keywordindex.KeywordRow{
			ID:           fmt.Sprintf("row-%d", i),
			Text:         fmt.Sprintf("keyword %d", i),
			Volume:       vol(float64(2_000 + i*97)),
			AnchorID:     fmt.Sprintf("anchor-%d", i%4),
			IntentBucket: "commercial",
			Active:       true,
		})
	}
	return rows
}

func noVolumeCorpus(n int) []keywordindex.KeywordRow {
	rows := make([]keywordindex.KeywordRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, keywordindex.KeywordRow{
			ID:     fmt.Sprintf("row-%d", i),
			Text:   fmt.Sprintf("keyword %d", i),
			Volume: nil,
			Active: true,
		})
	}
	return rows
}

func newTestAuditor(corpus keywordindex.CorpusProvider, opts Options) *Auditor {
	pipeline := keywordindex.NewPipeline(corpus, nil, nil, nil, keywordindex.DefaultConfig())
	return NewAuditor(pipeline, opts)
}

// A fixed corpus audited 25 times has zero deviation and verdict GO.
func TestAuditFixedCorpusGoesGo(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]keywordindex.KeywordRow{"crm": stableCorpus(80)}}
	auditor := newTestAuditor(corpus, Options{})

	report, err := auditor.Run(context.Background(), "2026-W31", "snap-1", []string{"crm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Categories) != 1 {
		t.Fatalf("categories = %d", len(report.Categories))
	}
	c := report.Categories[0]
	if c.Verdict != VerdictGo || c.State != StateGo {
		t.Errorf("verdict = %s state = %s, want GO", c.Verdict, c.State)
	}
	if c.Stats.Runs != DefaultRunsPerCategory {
		t.Errorf("runs = %d, want %d", c.Stats.Runs, DefaultRunsPerCategory)
	}
	if c.Stats.DeviationPct != 0 {
		t.Errorf("deviation = %f, want 0", c.Stats.DeviationPct)
	}
	if corpus.loads["crm"] != DefaultRunsPerCategory {
		t.Errorf("corpus loads = %d, want %d", corpus.loads["crm"], DefaultRunsPerCategory)
	}
	if report.VerdictCounts[VerdictGo] != 1 {
		t.Errorf("verdict counts = %v", report.VerdictCounts)
	}
	if report.AuditID == "" {
		t.Error("audit id missing")
	}
}

// 500 rows, zero eligible: verdict MISSING, no error, demand stays zero.
func TestAuditNoEligibleRowsGoesMissing(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]keywordindex.KeywordRow{"crm": noVolumeCorpus(500)}}
	auditor := newTestAuditor(corpus, Options{RunsPerCategory: 5})

	report, err := auditor.Run(context.Background(), "w", "", []string{"crm"})
	if err != nil {
		t.Fatal(err)
	}
	c := report.Categories[0]
	if c.Verdict != VerdictMissing {
		t.Errorf("verdict = %s, want MISSING", c.Verdict)
	}
	if c.Stats.Median != 0 {
		t.Errorf("median = %f, want 0", c.Stats.Median)
	}
	if c.FailureCode != "" {
		t.Errorf("MISSING must not be a failure, got code %s", c.FailureCode)
	}
}

// Empty corpus is a structural failure, distinguishable from MISSING.
func TestAuditEmptyCorpusFails(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]keywordindex.KeywordRow{}}
	auditor := newTestAuditor(corpus, Options{RunsPerCategory: 5})

	report, err := auditor.Run(context.Background(), "w", "", []string{"ghost"})
	if err != nil {
		t.Fatal(err)
	}
	c := report.Categories[0]
	if c.Verdict != VerdictFail {
		t.Errorf("verdict = %s, want FAIL", c.Verdict)
	}
	if c.FailureCode != keywordindex.CodeEmptyCorpus {
		t.Errorf("failure code = %s, want %s", c.FailureCode, keywordindex.CodeEmptyCorpus)
	}
}

func TestAuditMultipleCategories(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]keywordindex.KeywordRow{
		"crm": stableCorpus(40),
		"erp": stableCorpus(60),
		"scm": noVolumeCorpus(10),
		"mes": stableCorpus(20),
		"plm": stableCorpus(30),
	}}
	auditor := newTestAuditor(corpus, Options{RunsPerCategory: 3, Concurrency: 2})

	report, err := auditor.Run(context.Background(), "w", "", []string{"crm", "erp", "scm", "mes", "plm"})
	if err != nil {
		t.Fatal(err)
	}
	if report.VerdictCounts[VerdictGo] != 4 || report.VerdictCounts[VerdictMissing] != 1 {
		t.Errorf("verdict counts = %v", report.VerdictCounts)
	}
	// Result order must match input order regardless of pool scheduling.
	for i, want := range []string{"crm", "erp", "scm", "mes", "plm"} {
		if report.Categories[i].CategoryID != want {
			t.Errorf("categories[%d] = %s, want %s", i, report.Categories[i].CategoryID, want)
		}
	}
}

func TestAuditCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corpus := &stubCorpus{rows: map[string][]keywordindex.KeywordRow{"crm": stableCorpus(10)}}
	auditor := newTestAuditor(corpus, Options{RunsPerCategory: 10})

	report, err := auditor.Run(ctx, "w", "", []string{"crm"})
	if err == nil {
		t.Fatal("expected context error")
	}
	c := report.Categories[0]
	if c.State != StatePending {
		t.Errorf("state = %s, want PENDING after cancellation", c.State)
	}
	if c.Verdict != "" {
		t.Errorf("canceled category has verdict %s", c.Verdict)
	}
}

func TestAuditValidatesInput(t *testing.T) {
	auditor := newTestAuditor(&stubCorpus{}, Options{})
	if _, err := auditor.Run(context.Background(), "w", "", nil); err == nil {
		t.Fatal("expected validation error for empty category list")
	}
}

func TestVerdictBoundaries(t *testing.T) {
	cases := []struct {
		median, deviation float64
		want              Verdict
	}{
		{0, 0, VerdictMissing},
		{2, 0, VerdictGo},
		{2, 1.0, VerdictGo},
		{2, 1.01, VerdictWarn},
		{2, 5.0, VerdictWarn},
		{2, 5.01, VerdictFail},
	}
	for _, tc := range cases {
		got := verdictFor(SeriesStats{Median: tc.median, DeviationPct: tc.deviation})
		if got != tc.want {
			t.Errorf("verdictFor(median=%f dev=%f) = %s, want %s", tc.median, tc.deviation, got, tc.want)
		}
	}
}

func TestBuildMarkdown(t *testing.T) {
	corpus := &stubCorpus{rows: map[string][]keywordindex.KeywordRow{"crm": stableCorpus(40)}}
	auditor := newTestAuditor(corpus, Options{RunsPerCategory: 3})
	report, err := auditor.Run(context.Background(), "2026-W31", "snap-1", []string{"crm"})
	if err != nil {
		t.Fatal(err)
	}

	md := BuildMarkdown(report)
	for _, want := range []string{report.AuditID, "2026-W31", "| crm | GO |", "Runs per category: 3"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
