package patrol

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Routes returns the chi router for the /api/v1 surface.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", s.handleListSources)
		r.Post("/", s.handleAddSource)
		r.Get("/{id}", s.handleGetSource)
		r.Put("/{id}", s.handleUpdateSource)
		r.Delete("/{id}", s.handleDeleteSource)
		r.Post("/{id}/disable", s.handleDisableSource)
		r.Post("/{id}/enable", s.handleEnableSource)
		r.Get("/{id}/history", s.handleFetchHistory)
	})

	r.Post("/run", s.handleRun)
	r.Post("/extract", s.handleExtract)
	r.Post("/queue/process", s.handleProcessQueue)

	r.Route("/patterns", func(r chi.Router) {
		r.Get("/", s.handleListPatterns)
		r.Get("/{id}", s.handleGetPattern)
		r.Get("/{id}/reviews", s.handleReviewHistory)
		r.Get("/{id}/usage", s.handleUsageStats)
	})

	r.Post("/review", s.handleReview)
	r.Post("/usage", s.handleTrackUsage)
	r.Post("/export", s.handleExport)
	r.Get("/stats", s.handleStats)

	return r
}

func (s *Service) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var in SourceInput
	if !decodeBody(w, r, &in) {
		return
	}
	src, err := s.AddSource(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Service) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.GetSource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Service) handleListSources(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	sources, err := s.ListSources(r.Context(), activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if sources == nil {
		sources = []*Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Service) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	var in SourceInput
	if !decodeBody(w, r, &in) {
		return
	}
	src, err := s.UpdateSource(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Service) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Service) handleDisableSource(w http.ResponseWriter, r *http.Request) {
	if err := s.DisableSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func (s *Service) handleEnableSource(w http.ResponseWriter, r *http.Request) {
	if err := s.EnableSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (s *Service) handleFetchHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.FetchHistory(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []*FetchLogEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.Run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.Extract(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	n, err := s.ProcessQueue(r.Context(), queryInt(r, "max", 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": n})
}

func (s *Service) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := PatternFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		SourceID: q.Get("source_id"),
	}
	if v := q.Get("min_confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinConfidence = f
		}
	}
	if v := q.Get("min_relevance"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinRelevance = f
		}
	}
	patterns, err := s.ListPatterns(r.Context(), filter, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	if patterns == nil {
		patterns = []*Pattern{}
	}
	writeJSON(w, http.StatusOK, patterns)
}

func (s *Service) handleGetPattern(w http.ResponseWriter, r *http.Request) {
	p, err := s.GetPattern(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Service) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.ReviewHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []*Review{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Service) handleUsageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.PatternUsageStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.Review(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleTrackUsage(w http.ResponseWriter, r *http.Request) {
	var req UsageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	event, err := s.TrackUsage(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.Export(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.MIMEType)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		jsonErr(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		jsonErr(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateSource):
		jsonErr(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrQuotaExceeded):
		jsonErr(w, err.Error(), http.StatusTooManyRequests)
	default:
		jsonErr(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonErr(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
