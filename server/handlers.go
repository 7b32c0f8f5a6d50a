package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/briefwire/briefwire/pkg/domain"
)

// statusHandler returns pipeline and server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":   "ok",
		"version":  s.version,
		"time":     time.Now().UTC(),
		"pipeline": s.scheduler.Status(),
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// limitsHandler returns quota consumption for the current day
func (s *Server) limitsHandler(w http.ResponseWriter, r *http.Request) {
	limits, err := s.scheduler.DailyLimits(r.Context())
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, limits)
}

// triggerBatchHandler starts a batch immediately. The batch runs in the
// background detached from the request; a batch already in flight makes this
// a no-op.
func (s *Server) triggerBatchHandler(w http.ResponseWriter, r *http.Request) {
	go s.scheduler.RunBatch(context.Background())
	RenderJSON(w, r, http.StatusAccepted, map[string]string{"result": "batch triggered"})
}

// resetBreakerHandler clears the circuit state for one source
func (s *Server) resetBreakerHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		RenderError(w, r, fmt.Errorf("source id required"), http.StatusBadRequest)
		return
	}
	s.scheduler.ResetBreaker(id)
	RenderJSON(w, r, http.StatusOK, map[string]string{"result": "breaker reset", "source": id})
}

// sourcesHandler lists configured sources
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	sources, err := s.sources.GetSources(r.Context(), activeOnly)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, sources)
}

// listBriefsHandler lists briefs, optionally filtered by category
func (s *Server) listBriefsHandler(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		RenderError(w, r, fmt.Errorf("unknown category %q", category), http.StatusBadRequest)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			RenderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	briefs, err := s.briefs.ListBriefs(r.Context(), category, limit)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, briefs)
}

// getBriefHandler returns a single brief by id
func (s *Server) getBriefHandler(w http.ResponseWriter, r *http.Request) {
	brief, err := s.briefs.GetBrief(r.Context(), r.PathValue("id"))
	if err != nil {
		RenderError(w, r, err, http.StatusNotFound)
		return
	}
	RenderJSON(w, r, http.StatusOK, brief)
}

// logsHandler returns recent processing logs
func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := s.logs.Recent(r.Context(), limit)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, logs)
}
