package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Resinat/subdecode/internal/service"
)

// missingURLExample is returned alongside a missing url error.
var missingURLExample = map[string]string{"url": "https://example.com/api/data"}

func writeInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, service.CodeInvalidArgument, message)
}

func writeMissingURL(w http.ResponseWriter) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    service.CodeInvalidArgument,
		Error:   service.ErrURLRequired.Error(),
		Example: missingURLExample,
	})
}

func writePayloadTooLarge(w http.ResponseWriter, limit int64) {
	msg := "request body too large"
	if limit > 0 {
		msg = "request body too large (max " + strconv.FormatInt(limit, 10) + " bytes)"
	}
	WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", msg)
}

func writeDecodeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *requestBodyTooLargeError
	if errors.As(err, &tooLarge) {
		writePayloadTooLarge(w, tooLarge.Limit)
		return
	}
	writeInvalidArgument(w, err.Error())
}

// serviceErrorStatus maps a ServiceError code to its HTTP status.
func serviceErrorStatus(code string) int {
	switch code {
	case service.CodeInvalidArgument:
		return http.StatusBadRequest
	case service.CodeDecodeFailed:
		return http.StatusUnprocessableEntity
	case service.CodeUpstreamHTTPStatus, service.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	case service.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps service errors to HTTP response codes.
func writeServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		WriteError(w, http.StatusInternalServerError, service.CodeInternal, "internal server error")
		return
	}
	if errors.Is(err, service.ErrURLRequired) {
		writeMissingURL(w)
		return
	}

	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		WriteError(w, serviceErrorStatus(svcErr.Code), svcErr.Code, svcErr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, service.CodeInternal, "internal server error")
}
