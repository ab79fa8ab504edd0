package driftaudit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/blustreamin/mci/internal/keywordindex"
)

type CategoryState string

const (
	StatePending CategoryState = "PENDING"
	StateRunning CategoryState = "RUNNING"
	StateGo      CategoryState = "GO"
	StateWarn    CategoryState = "WARN"
	StateFail    CategoryState = "FAIL"
	StateMissing CategoryState = "MISSING"
)

type Verdict string

const (
	VerdictGo      Verdict = "GO"
	VerdictWarn    Verdict = "WARN"
	VerdictFail    Verdict = "FAIL"
	VerdictMissing Verdict = "MISSING"
)

const (
	DefaultRunsPerCategory = 25
	DefaultConcurrency     = 3

	goDeviationPct   = 1.0
	warnDeviationPct = 5.0
)

// Options tune one audit. Zero values take the defaults.
type Options struct {
	RunsPerCategory int
	Concurrency     int
}

func (o Options) withDefaults() Options {
	if o.RunsPerCategory <= 0 {
		o.RunsPerCategory = DefaultRunsPerCategory
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// CategoryResult is one category's audited stability.
type CategoryResult struct {
	CategoryID  string        `json:"category_id"`
	State       CategoryState `json:"state"`
	Verdict     Verdict       `json:"verdict,omitempty"`
	Stats       SeriesStats   `json:"stats"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	FailureCode string        `json:"failure_code,omitempty"`
	FailureNote string        `json:"failure_note,omitempty"`
}

// Report is the audit artifact. It is never mutated after completion.
type Report struct {
	AuditID            string           `json:"audit_id"`
	WindowID           string           `json:"window_id"`
	CorpusSnapshotID   string           `json:"corpus_snapshot_id"`
	RunsPerCategory    int              `json:"runs_per_category"`
	Concurrency        int              `json:"concurrency"`
	StartedAt          time.Time        `json:"started_at"`
	CompletedAt        time.Time        `json:"completed_at"`
	Categories         []CategoryResult `json:"categories"`
	VerdictCounts      map[Verdict]int  `json:"verdict_counts"`
	MaxDeviationPct    float64          `json:"max_deviation_pct"`
	MedianDeviationPct float64          `json:"median_deviation_pct"`
}

// Auditor runs the scoring pipeline N times per category and classifies the
// drift. The pipeline is forced into offline trend mode so the only possible
// source of run-to-run variation is the pipeline itself.
type Auditor struct {
	pipeline *keywordindex.Pipeline
	opts     Options
	clock    func() time.Time
}

func NewAuditor(pipeline *keywordindex.Pipeline, opts Options) *Auditor {
	return &Auditor{
		pipeline: pipeline.WithOfflineTrends(),
		opts:     opts.withDefaults(),
		clock:    time.Now,
	}
}

// Run audits every category. Categories run concurrently on a bounded pool;
// each category's iterations run strictly sequentially, with cancellation
// checked between iterations so an in-flight pass always completes.
func (a *Auditor) Run(ctx context.Context, windowID, corpusSnapshotID string, categoryIDs []string) (Report, error) {
	if len(categoryIDs) == 0 {
		return Report{}, keywordindex.NewValidationError("at least one category_id is required")
	}

	report := Report{
		AuditID:          uuid.NewString(),
		WindowID:         windowID,
		CorpusSnapshotID: corpusSnapshotID,
		RunsPerCategory:  a.opts.RunsPerCategory,
		Concurrency:      a.opts.Concurrency,
		StartedAt:        a.clock().UTC(),
	}

	results := make([]CategoryResult, len(categoryIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, categoryID := range categoryIDs {
		g.Go(func() error {
			results[i] = a.auditCategory(gctx, windowID, corpusSnapshotID, categoryID)
			return nil
		})
	}
	_ = g.Wait()

	report.Categories = results
	report.CompletedAt = a.clock().UTC()
	finalizeReport(&report)
	return report, ctx.Err()
}

func (a *Auditor) auditCategory(ctx context.Context, windowID, corpusSnapshotID, categoryID string) CategoryResult {
	res := CategoryResult{CategoryID: categoryID, State: StateRunning}
	req := keywordindex.ComputeRequest{
		CategoryID:       categoryID,
		WindowID:         windowID,
		CorpusSnapshotID: corpusSnapshotID,
	}

	series := make([]float64, 0, a.opts.RunsPerCategory)
	for i := 0; i < a.opts.RunsPerCategory; i++ {
		if ctx.Err() != nil {
			res.State = StatePending
			res.FailureNote = "audit canceled before completing all iterations"
			res.Stats = ComputeStats(series)
			return res
		}
		snap, err := a.pipeline.Compute(ctx, req)
		if err != nil {
			res.State = StateFail
			res.Verdict = VerdictFail
			res.FailureCode = keywordindex.CodeOf(err)
			res.FailureNote = err.Error()
			res.Stats = ComputeStats(series)
			log.Printf("drift-audit category=%s run=%d failed: %v", categoryID, i+1, err)
			return res
		}
		series = append(series, snap.DemandIndexMn)
		res.Fingerprint = snap.CorpusFingerprint
	}

	res.Stats = ComputeStats(series)
	res.Verdict = verdictFor(res.Stats)
	res.State = CategoryState(res.Verdict)
	return res
}

func verdictFor(st SeriesStats) Verdict {
	switch {
	case st.Median == 0:
		return VerdictMissing
	case st.DeviationPct <= goDeviationPct:
		return VerdictGo
	case st.DeviationPct <= warnDeviationPct:
		return VerdictWarn
	default:
		return VerdictFail
	}
}

func finalizeReport(report *Report) {
	report.VerdictCounts = map[Verdict]int{}
	deviations := make([]float64, 0, len(report.Categories))
	for _, c := range report.Categories {
		if c.Verdict != "" {
			report.VerdictCounts[c.Verdict]++
		}
		if c.State == StatePending {
			continue
		}
		deviations = append(deviations, c.Stats.DeviationPct)
		if c.Stats.DeviationPct > report.MaxDeviationPct {
			report.MaxDeviationPct = c.Stats.DeviationPct
		}
	}
	if len(deviations) > 0 {
		report.MedianDeviationPct = ComputeStats(deviations).Median
	}
}
