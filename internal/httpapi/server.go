// Package httpapi is the thin service wrapper over the scoring pipeline and
// the drift auditor. It holds no scoring logic of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blustreamin/mci/internal/driftaudit"
	"github.com/blustreamin/mci/internal/keywordindex"
)

// SnapshotGetter reads previously computed snapshots.
type SnapshotGetter interface {
	GetSnapshot(ctx context.Context, categoryID, windowID string) (keywordindex.MetricsSnapshot, bool, error)
}

// ReportStore archives and retrieves audit reports.
type ReportStore interface {
	PutReport(ctx context.Context, report driftaudit.Report) error
	GetReport(ctx context.Context, auditID string) (driftaudit.Report, bool, error)
}

type Server struct {
	pipeline  *keywordindex.Pipeline
	snapshots SnapshotGetter
	reports   ReportStore
}

func NewServer(pipeline *keywordindex.Pipeline, snapshots SnapshotGetter, reports ReportStore) http.Handler {
	s := &Server{pipeline: pipeline, snapshots: snapshots, reports: reports}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/metrics/compute", s.handleCompute)
	mux.HandleFunc("/v1/snapshots", s.handleGetSnapshot)
	mux.HandleFunc("/v1/audits", s.handleAudits)
	mux.HandleFunc("/v1/audits/", s.handleGetAudit)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var req keywordindex.ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, keywordindex.CodeValidation, "invalid json: "+err.Error())
		return
	}
	snap, err := s.pipeline.Compute(r.Context(), req)
	if err != nil {
		writeIndexError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "snapshot": snap})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}
	categoryID := strings.TrimSpace(r.URL.Query().Get("category_id"))
	windowID := strings.TrimSpace(r.URL.Query().Get("window_id"))
	if categoryID == "" || windowID == "" {
		writeError(w, http.StatusBadRequest, keywordindex.CodeValidation, "category_id and window_id are required")
		return
	}
	snap, ok, err := s.snapshots.GetSnapshot(r.Context(), categoryID, windowID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, keywordindex.CodeStorage, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no snapshot for category/window")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "snapshot": snap})
}

type auditRequest struct {
	WindowID         string   `json:"window_id"`
	CorpusSnapshotID string   `json:"corpus_snapshot_id"`
	CategoryIDs      []string `json:"category_ids"`
	RunsPerCategory  int      `json:"runs_per_category"`
	Concurrency      int      `json:"concurrency"`
}

func (s *Server) handleAudits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, keywordindex.CodeValidation, "invalid json: "+err.Error())
		return
	}

	auditor := driftaudit.NewAuditor(s.pipeline, driftaudit.Options{
		RunsPerCategory: req.RunsPerCategory,
		Concurrency:     req.Concurrency,
	})
	report, err := auditor.Run(r.Context(), req.WindowID, req.CorpusSnapshotID, req.CategoryIDs)
	if err != nil {
		writeIndexError(w, err)
		return
	}
	if s.reports != nil {
		if err := s.reports.PutReport(r.Context(), report); err != nil {
			writeError(w, http.StatusInternalServerError, keywordindex.CodeStorage, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": report})
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}
	auditID := strings.TrimPrefix(r.URL.Path, "/v1/audits/")
	if auditID == "" || strings.Contains(auditID, "/") {
		writeError(w, http.StatusBadRequest, keywordindex.CodeValidation, "audit id required")
		return
	}
	report, ok, err := s.reports.GetReport(r.Context(), auditID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, keywordindex.CodeStorage, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no report with that audit id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": report})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": map[string]any{"code": code, "message": message},
	})
}

func writeIndexError(w http.ResponseWriter, err error) {
	var ie *keywordindex.Error
	if errors.As(err, &ie) {
		writeError(w, statusForCode(ie.Code), ie.Code, ie.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, keywordindex.CodeInternal, err.Error())
}

func statusForCode(code string) int {
	switch code {
	case keywordindex.CodeValidation:
		return http.StatusBadRequest
	case keywordindex.CodeEmptyCorpus:
		return http.StatusNotFound
	case keywordindex.CodeStorage, keywordindex.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
