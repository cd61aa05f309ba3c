package handler

import (
	"fmt"
	"net/http"

	"github.com/recipebox/recipebox/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, kind := range metrics.Kinds {
		writeMetric(w, "recipe_api_writes_total{kind=%q,op=\"create\"} %d\n", kind.String(), snap.Created[kind])
		writeMetric(w, "recipe_api_writes_total{kind=%q,op=\"update\"} %d\n", kind.String(), snap.Updated[kind])
		writeMetric(w, "recipe_api_writes_total{kind=%q,op=\"delete\"} %d\n", kind.String(), snap.Deleted[kind])
	}
	writeMetric(w, "recipe_api_images_uploaded_total %d\n", snap.ImagesUploaded)

	writeMetric(w, "recipe_api_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "recipe_api_tokens_issued_total %d\n", snap.TokensIssued)
	writeMetric(w, "recipe_api_logins_failed_total %d\n", snap.LoginsFailed)

	writeMetric(w, "recipe_api_auth_failures_total %d\n", snap.AuthFailures)
	writeMetric(w, "recipe_api_rate_limited_total %d\n", snap.RateLimited)
	writeMetric(w, "recipe_api_request_duration_seconds_count %d\n", snap.RequestDurationCount)
	writeMetric(w, "recipe_api_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
