package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MetricsHandler serves the Prometheus exposition endpoint
type MetricsHandler struct {
	prometheus http.Handler
}

// NewMetricsHandler creates a metrics handler around the Prometheus
// exposition handler from the OTel providers. A nil handler degrades
// to a plain availability response so the route always exists.
func NewMetricsHandler(prometheus http.Handler) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	return r
}

// GetMetrics returns the Prometheus exposition output
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{
			"status": "unavailable",
			"reason": "metrics exporter not initialized",
		})
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
