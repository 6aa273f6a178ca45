// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/analytics"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/query"
	"github.com/okian/gradelens/internal/domain/types"
)

// Defaults for handler limits.
const (
	defaultMaxUploadBytes  = 10 << 20
	defaultTopN            = 10
	defaultMaxTopN         = 100
	defaultForecastPeriods = 3
	maxForecastPeriods     = 24
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UploadDependencies
	RecordsDependencies
	AnalyticsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	uploadHandler    *UploadHandler
	recordsHandler   *RecordsHandler
	analyticsHandler *AnalyticsHandler

	maxUploadBytes  int64
	defaultTopN     int
	maxTopN         int
	forecastPeriods int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxUploadBytes caps the request body accepted by POST /upload.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithTopN sets the default and maximum limit of GET /performers.
func WithTopN(def, max int) Option {
	return func(s *Server) {
		if max > 0 {
			s.maxTopN = max
		}
		if def > 0 && def <= s.maxTopN {
			s.defaultTopN = def
		}
	}
}

// WithForecastPeriods sets the default horizon of GET /forecast.
func WithForecastPeriods(n int) Option {
	return func(s *Server) {
		if n > 0 && n <= maxForecastPeriods {
			s.forecastPeriods = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxUploadBytes:  defaultMaxUploadBytes,
		defaultTopN:     defaultTopN,
		maxTopN:         defaultMaxTopN,
		forecastPeriods: defaultForecastPeriods,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.uploadHandler = NewUploadHandler(deps, s.maxUploadBytes)
	s.recordsHandler = NewRecordsHandler(deps)
	s.analyticsHandler = NewAnalyticsHandler(deps, s.defaultTopN, s.maxTopN, s.forecastPeriods)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/upload", MetricsMiddleware(s.uploadHandler.HandleUpload, "upload"))
	mux.HandleFunc("/dataset", MetricsMiddleware(s.uploadHandler.HandleDataset, "dataset"))
	mux.HandleFunc("/records", MetricsMiddleware(s.recordsHandler.HandleRecords, "records"))
	mux.HandleFunc("/facets", MetricsMiddleware(s.recordsHandler.HandleFacets, "facets"))
	mux.HandleFunc("/export", MetricsMiddleware(s.recordsHandler.HandleExport, "export"))
	mux.HandleFunc("/metrics/summary", MetricsMiddleware(s.analyticsHandler.HandleSummary, "metrics_summary"))
	mux.HandleFunc("/insights", MetricsMiddleware(s.analyticsHandler.HandleInsights, "insights"))
	mux.HandleFunc("/performers", MetricsMiddleware(s.analyticsHandler.HandlePerformers, "performers"))
	mux.HandleFunc("/students/", MetricsMiddleware(s.analyticsHandler.HandleStudent, "student"))
	mux.HandleFunc("/standings", MetricsMiddleware(s.analyticsHandler.HandleStandings, "standings"))
	mux.HandleFunc("/forecast", MetricsMiddleware(s.analyticsHandler.HandleForecast, "forecast"))
	mux.HandleFunc("/at-risk", MetricsMiddleware(s.analyticsHandler.HandleAtRisk, "at_risk"))
}

// UploadDependencies loads and clears datasets.
type UploadDependencies interface {
	Load(ctx context.Context, r io.Reader) (types.UploadSummary, error)
	Clear(ctx context.Context)
	Summary() types.UploadSummary
}

// RecordsDependencies exposes the filtered view.
type RecordsDependencies interface {
	ApplyQuery(st query.State) []model.AssessedRecord
	Export(w io.Writer, filteredOnly bool) error
	Subjects() []string
	Semesters() []string
}

// AnalyticsDependencies exposes aggregate statistics.
type AnalyticsDependencies interface {
	Metrics() model.Metrics
	Insights() []model.Insight
	TopPerformers(n int) []model.Performer
	BottomPerformers(n int) []model.Performer
	StudentTrend(studentID string) model.Trend
	Forecast(periods int) analytics.Forecast
	AtRisk() []model.AssessedRecord
	StudentRank(ctx context.Context, studentID string) (repository.Entry, error)
	Standings(ctx context.Context, n int) ([]repository.Entry, error)
}

type errorResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Errors  []types.RowIssue `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
