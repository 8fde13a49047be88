package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Resinat/subdecode/internal/netutil"
)

// Error codes carried by ServiceError.
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeUpstreamHTTPStatus  = "UPSTREAM_HTTP_STATUS"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeDecodeFailed        = "DECODE_FAILED"
	CodeInternal            = "INTERNAL"
)

// ErrURLRequired is wrapped by the ServiceError returned for a missing url.
var ErrURLRequired = errors.New("request body must include a url field")

// ServiceError wraps an error with a code for API response mapping.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

func invalidArg(msg string, err error) *ServiceError {
	return &ServiceError{Code: CodeInvalidArgument, Message: msg, Err: err}
}

func decodeFailed(err error) *ServiceError {
	return &ServiceError{Code: CodeDecodeFailed, Message: err.Error(), Err: err}
}

func internal(msg string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: msg, Err: err}
}

// upstreamError classifies a download failure.
func upstreamError(err error) *ServiceError {
	var statusErr *netutil.HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		return &ServiceError{
			Code:    CodeUpstreamHTTPStatus,
			Message: fmt.Sprintf("upstream responded with HTTP %d", statusErr.StatusCode),
			Err:     err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &ServiceError{Code: CodeUpstreamTimeout, Message: "upstream request timed out", Err: err}
	case errors.Is(err, netutil.ErrInvalidRequest):
		return invalidArg(err.Error(), err)
	case errors.Is(err, netutil.ErrBodyTooLarge):
		return &ServiceError{Code: CodeUpstreamUnavailable, Message: "upstream response exceeds the size limit", Err: err}
	case errors.Is(err, context.Canceled):
		return &ServiceError{Code: CodeUpstreamUnavailable, Message: "request canceled", Err: err}
	default:
		return &ServiceError{Code: CodeUpstreamUnavailable, Message: err.Error(), Err: err}
	}
}
