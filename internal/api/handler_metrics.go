package api

import (
	"net/http"

	"github.com/Resinat/subdecode/internal/metrics"
)

// HandleMetrics returns a handler for GET /api/v1/metrics.
func HandleMetrics(collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, collector.Snapshot())
	}
}
