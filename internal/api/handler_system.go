package api

import (
	"net/http"

	"github.com/Resinat/subdecode/internal/service"
)

// HandleHealthz returns a handler for GET /healthz. It needs no auth.
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HandleSystemInfo returns a handler for GET /api/v1/system/info.
func HandleSystemInfo(sys service.SystemService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, sys.GetSystemInfo())
	}
}
