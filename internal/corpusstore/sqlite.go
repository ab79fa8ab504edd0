package corpusstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/blustreamin/mci/internal/driftaudit"
	"github.com/blustreamin/mci/internal/keywordindex"
)

// Store is the SQLite-backed implementation of the pipeline's external
// collaborators: corpus provider, snapshot store, trend lock store, and the
// audit report archive. Snapshot writes are idempotent upserts keyed by
// (category, window); trend locks and reports are write-once.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS keyword_rows (
	corpus_snapshot_id TEXT NOT NULL,
	category_id        TEXT NOT NULL,
	row_id             TEXT NOT NULL,
	text               TEXT NOT NULL DEFAULT '',
	volume             REAL,
	anchor_id          TEXT NOT NULL DEFAULT '',
	intent_bucket      TEXT NOT NULL DEFAULT '',
	active             INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (corpus_snapshot_id, category_id, row_id)
);

CREATE TABLE IF NOT EXISTS metrics_snapshots (
	category_id        TEXT NOT NULL,
	window_id          TEXT NOT NULL,
	corpus_snapshot_id TEXT NOT NULL DEFAULT '',
	corpus_fingerprint TEXT NOT NULL DEFAULT '',
	demand_index_mn    REAL NOT NULL DEFAULT 0,
	readiness          REAL NOT NULL DEFAULT 0,
	spread             REAL NOT NULL DEFAULT 0,
	trend_percent      REAL,
	trend_label        TEXT NOT NULL DEFAULT '',
	trend_source       TEXT NOT NULL DEFAULT '',
	computed_at        TEXT NOT NULL,
	demand_audit       TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (category_id, window_id)
);

CREATE TABLE IF NOT EXISTS trend_locks (
	category_id TEXT PRIMARY KEY,
	percent     REAL NOT NULL,
	locked_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_reports (
	audit_id   TEXT PRIMARY KEY,
	window_id  TEXT NOT NULL DEFAULT '',
	report     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- corpus rows ---

// PutRows replaces the stored rows for one (snapshot, category) corpus.
func (s *Store) PutRows(ctx context.Context, categoryID, corpusSnapshotID string, rows []keywordindex.KeywordRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM keyword_rows WHERE corpus_snapshot_id = ? AND category_id = ?`,
		corpusSnapshotID, categoryID); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO keyword_rows
			 (corpus_snapshot_id, category_id, row_id, text, volume, anchor_id, intent_bucket, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			corpusSnapshotID, categoryID, r.ID, r.Text, nullableFloat(r.Volume),
			r.AnchorID, r.IntentBucket, boolToInt(r.Active)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRows returns the complete corpus for a category at a snapshot, parsed
// once into typed rows. The core pipeline never re-validates these.
func (s *Store) LoadRows(ctx context.Context, categoryID, corpusSnapshotID string) ([]keywordindex.KeywordRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_id, text, volume, anchor_id, intent_bucket, active
		 FROM keyword_rows
		 WHERE corpus_snapshot_id = ? AND category_id = ?
		 ORDER BY row_id`,
		corpusSnapshotID, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []keywordindex.KeywordRow
	for rows.Next() {
		var r keywordindex.KeywordRow
		var volume sql.NullFloat64
		var active int
		if err := rows.Scan(&r.ID, &r.Text, &volume, &r.AnchorID, &r.IntentBucket, &active); err != nil {
			return nil, err
		}
		if volume.Valid {
			v := volume.Float64
			r.Volume = &v
		}
		r.Active = active != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- metrics snapshots ---

func (s *Store) PutSnapshot(ctx context.Context, snap keywordindex.MetricsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auditJSON, err := json.Marshal(snap.DemandAudit)
	if err != nil {
		return fmt.Errorf("marshal demand audit: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO metrics_snapshots
		 (category_id, window_id, corpus_snapshot_id, corpus_fingerprint,
		  demand_index_mn, readiness, spread, trend_percent, trend_label, trend_source,
		  computed_at, demand_audit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.CategoryID, snap.WindowID, snap.CorpusSnapshotID, snap.CorpusFingerprint,
		snap.DemandIndexMn, snap.Readiness, snap.Spread,
		nullableFloat(snap.TrendPercent), snap.TrendLabel, string(snap.TrendSource),
		timeToString(snap.ComputedAt), string(auditJSON))
	return err
}

func (s *Store) GetSnapshot(ctx context.Context, categoryID, windowID string) (keywordindex.MetricsSnapshot, bool, error) {
	var (
		snap      keywordindex.MetricsSnapshot
		trendPct  sql.NullFloat64
		computed  string
		auditJSON string
		source    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id, window_id, corpus_snapshot_id, corpus_fingerprint,
		        demand_index_mn, readiness, spread, trend_percent, trend_label, trend_source,
		        computed_at, demand_audit
		 FROM metrics_snapshots WHERE category_id = ? AND window_id = ?`,
		categoryID, windowID).Scan(
		&snap.CategoryID, &snap.WindowID, &snap.CorpusSnapshotID, &snap.CorpusFingerprint,
		&snap.DemandIndexMn, &snap.Readiness, &snap.Spread, &trendPct, &snap.TrendLabel, &source,
		&computed, &auditJSON)
	if err == sql.ErrNoRows {
		return keywordindex.MetricsSnapshot{}, false, nil
	}
	if err != nil {
		return keywordindex.MetricsSnapshot{}, false, err
	}
	if trendPct.Valid {
		v := trendPct.Float64
		snap.TrendPercent = &v
	}
	snap.TrendSource = keywordindex.TrendSource(source)
	snap.ComputedAt, _ = time.Parse(time.RFC3339Nano, computed)
	_ = json.Unmarshal([]byte(auditJSON), &snap.DemandAudit)
	return snap, true, nil
}

// --- trend locks ---

func (s *Store) GetTrendLock(ctx context.Context, categoryID string) (float64, bool, error) {
	var pct float64
	err := s.db.QueryRowContext(ctx,
		`SELECT percent FROM trend_locks WHERE category_id = ?`, categoryID).Scan(&pct)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return pct, true, nil
}

func (s *Store) PutTrendLockIfAbsent(ctx context.Context, categoryID string, percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trend_locks (category_id, percent, locked_at) VALUES (?, ?, ?)`,
		categoryID, percent, timeToString(time.Now()))
	return err
}

// InvalidateTrendLock removes a category's lock so the next resolve fetches
// fresh.
func (s *Store) InvalidateTrendLock(ctx context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM trend_locks WHERE category_id = ?`, categoryID)
	return err
}

// --- backtest reports ---

// PutReport archives a completed audit. Reports are immutable: writing the
// same audit ID twice is an error.
func (s *Store) PutReport(ctx context.Context, report driftaudit.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO backtest_reports (audit_id, window_id, report, created_at) VALUES (?, ?, ?, ?)`,
		report.AuditID, report.WindowID, string(blob), timeToString(report.CompletedAt))
	return err
}

func (s *Store) GetReport(ctx context.Context, auditID string) (driftaudit.Report, bool, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM backtest_reports WHERE audit_id = ?`, auditID).Scan(&blob)
	if err == sql.ErrNoRows {
		return driftaudit.Report{}, false, nil
	}
	if err != nil {
		return driftaudit.Report{}, false, err
	}
	var report driftaudit.Report
	if err := json.Unmarshal([]byte(blob), &report); err != nil {
		return driftaudit.Report{}, false, fmt.Errorf("decode report %s: %w", auditID, err)
	}
	return report, true, nil
}

// --- helpers ---

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time checks that Store satisfies the pipeline's collaborator
// interfaces.
var (
	_ keywordindex.CorpusProvider = (*Store)(nil)
	_ keywordindex.SnapshotStore  = (*Store)(nil)
	_ keywordindex.TrendLockStore = (*Store)(nil)
)
