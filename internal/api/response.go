// Package api implements the HTTP API server for subdecode.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Resinat/subdecode/internal/service"
	"github.com/Resinat/subdecode/internal/subscription"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Example any    `json:"example,omitempty"`
}

// ParseResponse is the success envelope of both parse endpoints.
type ParseResponse struct {
	Success    bool                 `json:"success"`
	URL        string               `json:"url,omitempty"`
	RawContent string               `json:"rawContent"`
	Nodes      *subscription.Result `json:"nodes"`
	Summary    subscription.Summary `json:"summary"`
}

func newParseResponse(res *service.FetchResult) ParseResponse {
	return ParseResponse{
		Success:    true,
		URL:        res.URL,
		RawContent: res.RawContent,
		Nodes:      res.Nodes,
		Summary:    res.Summary,
	}
}

var errorSummaries = map[string]string{
	"INVALID_ARGUMENT":     "invalid request",
	"UNAUTHORIZED":         "unauthorized",
	"NOT_FOUND":            "not found",
	"PAYLOAD_TOO_LARGE":    "request body too large",
	"UPSTREAM_HTTP_STATUS": "upstream returned an error status",
	"UPSTREAM_UNAVAILABLE": "upstream unavailable",
	"UPSTREAM_TIMEOUT":     "upstream request timed out",
	"DECODE_FAILED":        "subscription content could not be decoded",
}

// WriteError writes a standard error response. The error field is a fixed
// summary of code and message carries the detail.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	summary, ok := errorSummaries[code]
	if !ok {
		summary = "an error occurred while processing the request"
	}
	if message == summary {
		message = ""
	}
	WriteJSON(w, status, ErrorResponse{
		Code:    code,
		Error:   summary,
		Message: message,
	})
}
