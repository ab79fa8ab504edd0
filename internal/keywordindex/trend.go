package keywordindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TrendOracle is the external trend-percentage source. Fetch failures are
// expected and never abort a pipeline run.
type TrendOracle interface {
	FetchTrend(ctx context.Context, categoryID string) (float64, error)
}

// TrendLockStore is the write-once-then-reuse cache of fetched trend values,
// keyed by category. PutIfAbsent must not overwrite an existing lock.
type TrendLockStore interface {
	GetTrendLock(ctx context.Context, categoryID string) (float64, bool, error)
	PutTrendLockIfAbsent(ctx context.Context, categoryID string, percent float64) error
}

// TrendResolver resolves a category's trend: locked value if present, fresh
// fetch otherwise, safe default in offline mode. Repeated runs over the same
// category reuse the same locked value until the lock is invalidated.
type TrendResolver struct {
	oracle  TrendOracle
	locks   TrendLockStore
	offline bool
}

func NewTrendResolver(oracle TrendOracle, locks TrendLockStore) *TrendResolver {
	return &TrendResolver{oracle: oracle, locks: locks}
}

// Offline returns a resolver that bypasses fetching and returns a Stable
// default without writing locks. Used by the drift auditor so run-to-run
// variation is attributable only to the pipeline itself.
func (r *TrendResolver) Offline() *TrendResolver {
	return &TrendResolver{oracle: r.oracle, locks: r.locks, offline: true}
}

func (r *TrendResolver) Resolve(ctx context.Context, categoryID string) TrendResult {
	if r.offline {
		return TrendResult{Label: TrendLabelStable, Source: TrendSourceDefault}
	}
	if r.locks != nil {
		if pct, ok, err := r.locks.GetTrendLock(ctx, categoryID); err == nil && ok {
			return TrendResult{Percent: &pct, Label: TrendLabelFor(&pct), Source: TrendSourceLocked}
		}
	}
	if r.oracle == nil {
		return TrendResult{Label: TrendLabelUnknown, Source: TrendSourceDefault}
	}
	pct, err := r.oracle.FetchTrend(ctx, categoryID)
	if err != nil {
		return TrendResult{Label: TrendLabelUnknown, Source: TrendSourceDefault}
	}
	if r.locks != nil {
		_ = r.locks.PutTrendLockIfAbsent(ctx, categoryID, pct)
	}
	return TrendResult{Percent: &pct, Label: TrendLabelFor(&pct), Source: TrendSourceFresh}
}

// MemoryLockStore is an in-process TrendLockStore.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[string]float64
}

func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{locks: map[string]float64{}}
}

func (s *MemoryLockStore) GetTrendLock(_ context.Context, categoryID string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pct, ok := s.locks[categoryID]
	return pct, ok, nil
}

func (s *MemoryLockStore) PutTrendLockIfAbsent(_ context.Context, categoryID string, percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[categoryID]; !ok {
		s.locks[categoryID] = percent
	}
	return nil
}

// HTTPTrendOracle fetches trend percentages from a JSON endpoint:
// GET {base}/v1/trends/{categoryID} -> {"percent": 1.25}.
type HTTPTrendOracle struct {
	baseURL string
	http    *http.Client
}

func NewHTTPTrendOracle(baseURL string) *HTTPTrendOracle {
	return &HTTPTrendOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (o *HTTPTrendOracle) FetchTrend(ctx context.Context, categoryID string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/trends/"+url.PathEscape(categoryID), nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("trend oracle status %d: %s", resp.StatusCode, strings.TrimSpace(string(blob)))
	}
	var payload struct {
		Percent *float64 `json:"percent"`
	}
	if err := json.Unmarshal(blob, &payload); err != nil {
		return 0, fmt.Errorf("decode trend response: %w", err)
	}
	if payload.Percent == nil {
		return 0, fmt.Errorf("trend oracle returned no percent for %s", categoryID)
	}
	return *payload.Percent, nil
}
