package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gradelens/internal/adapters/repository"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/types"
)

// AnalyticsHandler serves aggregate statistics.
type AnalyticsHandler struct {
	deps            AnalyticsDependencies
	defaultTopN     int
	maxTopN         int
	forecastPeriods int
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies, defaultTopN, maxTopN, forecastPeriods int) *AnalyticsHandler {
	return &AnalyticsHandler{
		deps:            deps,
		defaultTopN:     defaultTopN,
		maxTopN:         maxTopN,
		forecastPeriods: forecastPeriods,
	}
}

// HandleSummary handles GET /metrics/summary.
func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Metrics())
}

// HandleInsights handles GET /insights.
func (h *AnalyticsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Insights())
}

// parseLimit reads ?limit=N bounded by the handler's default and maximum.
// It writes the error response itself and reports whether to continue.
func (h *AnalyticsHandler) parseLimit(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	n := h.defaultTopN
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return 0, false
		}
	}
	if n > h.maxTopN {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			WrapKind(op, ErrBadRequest, fmt.Errorf("limit must not exceed %d", h.maxTopN)))
		return 0, false
	}
	return n, true
}

// HandlePerformers handles GET /performers?order=top|bottom&limit=N.
func (h *AnalyticsHandler) HandlePerformers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_performers"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, ok := h.parseLimit(w, r, op)
	if !ok {
		return
	}

	switch r.URL.Query().Get("order") {
	case "", "top":
		writeJSON(w, http.StatusOK, types.Entries(h.deps.TopPerformers(n)))
	case "bottom":
		writeJSON(w, http.StatusOK, types.Entries(h.deps.BottomPerformers(n)))
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("order must be top or bottom")))
	}
}

// HandleStandings handles GET /standings?limit=N.
func (h *AnalyticsHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, ok := h.parseLimit(w, r, op)
	if !ok {
		return
	}
	entries, err := h.deps.Standings(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleStudent handles GET /students/{studentId}/trend and
// GET /students/{studentId}/rank.
func (h *AnalyticsHandler) HandleStudent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_student"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/students/")
	i := strings.LastIndexByte(path, '/')
	if i <= 0 || strings.Contains(path[:i], "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	id, view := path[:i], path[i+1:]

	switch view {
	case "trend":
		trend := h.deps.StudentTrend(id)
		if trend.Points == 0 {
			writeError(w, http.StatusNotFound, "not_found",
				WrapKind(op, ErrNotFound, fmt.Errorf("student %q", id)))
			return
		}
		writeJSON(w, http.StatusOK, trend)
	case "rank":
		entry, err := h.deps.StudentRank(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrNoData) {
				writeError(w, http.StatusNotFound, "not_found",
					WrapKind(op, ErrNotFound, fmt.Errorf("student %q: %w", id, err)))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		http.NotFound(w, r)
	}
}

// HandleForecast handles GET /forecast?periods=N.
func (h *AnalyticsHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_forecast"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	periods := h.forecastPeriods
	if s := r.URL.Query().Get("periods"); s != "" {
		var err error
		periods, err = strconv.Atoi(s)
		if err != nil || periods < 1 || periods > maxForecastPeriods {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("periods must be between 1 and %d", maxForecastPeriods)))
			return
		}
	}
	writeJSON(w, http.StatusOK, h.deps.Forecast(periods))
}

// HandleAtRisk handles GET /at-risk.
func (h *AnalyticsHandler) HandleAtRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AtRisk())
}
