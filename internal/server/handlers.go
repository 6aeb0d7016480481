package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/headline-goat/funnel-goat/internal/emitter"
	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	SuitesCount   int    `json:"suites_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	suites, err := s.store.ListSuites(ctx, 0)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Get database size
	var dbSize int64
	row := s.store.DB().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		s.logger.Warn("failed to read database size", "error", err)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		SuitesCount:   len(suites),
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

type apiSuite struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Status            report.Status `json:"status"`
	ControlVariant    string        `json:"control_variant"`
	Winner            string        `json:"winner,omitempty"`
	WinnerSignificant bool          `json:"winner_significant"`
	VariantCount      int           `json:"variant_count"`
	TotalRuns         int           `json:"total_runs"`
	DurationMs        int64         `json:"duration_ms"`
	CreatedAt         string        `json:"created_at"`
}

// handleSuitesAPI lists recorded suites, newest first.
func (s *Server) handleSuitesAPI(w http.ResponseWriter, r *http.Request) {
	suites, err := s.store.ListSuites(r.Context(), 0)
	if err != nil {
		http.Error(w, "Failed to load suites", http.StatusInternalServerError)
		return
	}

	// Return empty array instead of null
	response := make([]apiSuite, 0, len(suites))
	for _, l := range suites {
		response = append(response, apiSuite{
			ID:                l.ID,
			Name:              l.Name,
			Status:            l.Status,
			ControlVariant:    l.ControlVariant,
			Winner:            l.Winner,
			WinnerSignificant: l.WinnerSignificant,
			VariantCount:      l.VariantCount,
			TotalRuns:         l.TotalRuns,
			DurationMs:        l.Duration.Milliseconds(),
			CreatedAt:         l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"suites": response,
	})
}

// handleSuiteAPI returns one suite in the same shape as the summary
// artifact. The ref may be an id, a unique id prefix or "latest".
func (s *Server) handleSuiteAPI(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, emitter.NewSummary(rep))
}

// loadReport resolves the {ref} URL parameter, writing the error response
// itself when it fails.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	ref := chi.URLParam(r, "ref")

	rep, err := s.store.LoadReport(r.Context(), ref)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if errors.Is(err, store.ErrAmbiguous) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if err != nil {
		http.Error(w, "Failed to load suite", http.StatusInternalServerError)
		return nil, false
	}
	return rep, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
