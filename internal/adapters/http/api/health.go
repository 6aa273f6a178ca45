package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/gradelens/pkg/metrics"
)

// HealthHandler serves /healthz as the Prometheus exposition of the
// gradelens registry, so a scrape doubles as a liveness check.
type HealthHandler struct {
	exposition http.Handler
}

// NewHealthHandler builds the exposition handler once.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		exposition: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

// HandleHealth handles GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.exposition.ServeHTTP(w, r)
}
