package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/service"
	"calendar-cache/internal/storage"
)

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type eventsResponse struct {
	Success           bool                     `json:"success"`
	Data              []calendar.Event         `json:"data"`
	TotalEvents       int                      `json:"total_events"`
	DateRange         dateRange                `json:"date_range"`
	Representation    string                   `json:"representation"`
	Source            service.Source           `json:"source"`
	Timestamp         string                   `json:"timestamp"`
	ProcessingTimeMS  int64                    `json:"processing_time_ms"`
	PartialFailures   []service.PartialFailure `json:"partial_failures"`
	TransformDegraded []string                 `json:"transform_degraded"`
	QueryID           string                   `json:"query_id"`
}

type errorResponse struct {
	Success  bool                     `json:"success"`
	Detail   string                   `json:"detail"`
	Failures []service.PartialFailure `json:"failures,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Economic calendar cache API",
		"version": s.version,
		"status":  "running",
		"endpoints": map[string]string{
			"/events":          "GET - events for a date range (derived by default, ?original=true for original)",
			"/events/original": "GET - original events (same as /events?original=true)",
			"/health":          "GET - health check",
			"/database/delete": "DELETE - delete cached days for a date range",
			"/database/info":   "GET - cache statistics",
		},
		"usage_examples": map[string]string{
			"derived":      "/events?start=2025-08-11&end=2025-08-15",
			"original":     "/events?start=2025-08-11&end=2025-08-15&original=true",
			"original_alt": "/events/original?start=2025-08-11&end=2025-08-15",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.backend.Healthy(r.Context())
	body := map[string]any{
		"status":    "healthy",
		"store":     "connected",
		"in_flight": h.InFlight,
		"timestamp": timestamp(),
	}
	status := http.StatusOK
	if !h.StoreReachable {
		body["status"] = "unhealthy"
		body["store"] = "disconnected"
		body["error"] = h.Error
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	repr := calendar.Derived
	if raw := strings.TrimSpace(r.URL.Query().Get("original")); raw != "" {
		original, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("original must be a boolean"))
			return
		}
		if original {
			repr = calendar.Original
		}
	}
	s.serveEvents(w, r, repr)
}

func (s *Server) handleOriginalEvents(w http.ResponseWriter, r *http.Request) {
	s.serveEvents(w, r, calendar.Original)
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request, repr calendar.Representation) {
	start, end, ok := rangeParams(w, r)
	if !ok {
		return
	}
	q, err := calendar.NewRangeQuery(start, end, repr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.backend.Query(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Success:           true,
		Data:              res.Events,
		TotalEvents:       len(res.Events),
		DateRange:         dateRange{Start: res.Start, End: res.End},
		Representation:    string(res.Representation),
		Source:            res.Source,
		Timestamp:         timestamp(),
		ProcessingTimeMS:  res.ProcessingTimeMS,
		PartialFailures:   res.PartialFailures,
		TransformDegraded: res.TransformDegraded,
		QueryID:           res.QueryID,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start, end, ok := rangeParams(w, r)
	if !ok {
		return
	}
	q, err := calendar.NewRangeQuery(start, end, calendar.Original)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	deleted, err := s.backend.DeleteRange(r.Context(), q.Start, q.End)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	msg := fmt.Sprintf("Database records deleted for %s to %s", start, end)
	if deleted == 0 {
		msg = fmt.Sprintf("No database records found for %s to %s", start, end)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       deleted > 0,
		"deleted_count": deleted,
		"message":       msg,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_keys":    stats.TotalKeys,
		"total_records": stats.TotalKeys,
		"original_keys": stats.OriginalKeys,
		"derived_keys":  stats.DerivedKeys,
		"first_date":    stats.FirstDate,
		"last_date":     stats.LastDate,
		"in_flight":     stats.InFlight,
		"timestamp":     timestamp(),
	})
}

func rangeParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("start and end are required (YYYY-MM-DD)"))
		return "", "", false
	}
	return start, end, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var rue *service.RangeUnavailableError
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &rue):
		s.logger.Warn().Err(err).Msg("range unavailable")
		writeJSON(w, http.StatusBadGateway, errorResponse{Detail: err.Error(), Failures: rue.Failures})
	case errors.Is(err, storage.ErrUnavailable):
		s.logger.Error().Err(err).Msg("store unavailable")
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Detail: err.Error()})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
