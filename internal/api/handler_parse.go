package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/Resinat/subdecode/internal/config"
	"github.com/Resinat/subdecode/internal/service"
	"github.com/Resinat/subdecode/internal/subscription"
)

type parseOptions struct {
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	UserAgent string            `json:"userAgent"`
	Timeout   config.Duration   `json:"timeout"`
	NoCache   bool              `json:"noCache"`
}

type parseRequest struct {
	URL     string        `json:"url"`
	Options *parseOptions `json:"options"`
}

func (p parseRequest) toFetchRequest() service.FetchRequest {
	req := service.FetchRequest{URL: p.URL}
	if o := p.Options; o != nil {
		req.Method = o.Method
		req.Headers = o.Headers
		req.Body = o.Body
		req.UserAgent = o.UserAgent
		req.Timeout = o.Timeout.Std()
		req.NoCache = o.NoCache
	}
	return req
}

type parseRawRequest struct {
	Content string `json:"content"`
	Encoded bool   `json:"encoded"`
}

// readRawBodyOrWriteInvalid reads the whole body. A nil body reads as empty.
func readRawBodyOrWriteInvalid(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writePayloadTooLarge(w, maxErr.Limit)
			return nil, false
		}
		writeInvalidArgument(w, "failed to read body")
		return nil, false
	}
	return body, true
}

// HandleParse returns a handler for POST /api/v1/parse.
//
// The body is a JSON object, or that object base64-encoded the way some
// gateways forward it.
func HandleParse(svc *service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := readRawBodyOrWriteInvalid(w, r)
		if !ok {
			return
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			writeMissingURL(w)
			return
		}
		if raw[0] != '{' {
			decoded, err := subscription.DecodeBase64Text(string(raw))
			if err != nil {
				writeInvalidArgument(w, "request body must be a JSON object")
				return
			}
			raw = []byte(decoded)
		}

		var req parseRequest
		if err := DecodeBytes(raw, &req); err != nil {
			writeDecodeBodyError(w, err)
			return
		}

		res, err := svc.FetchAndParse(r.Context(), req.toFetchRequest())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, newParseResponse(res))
	}
}

// HandleParseRaw returns a handler for POST /api/v1/parse/raw.
func HandleParseRaw(svc *service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req parseRawRequest
		if err := DecodeBody(r, &req); err != nil {
			writeDecodeBodyError(w, err)
			return
		}

		res, err := svc.ParseContent(req.Content, req.Encoded)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, newParseResponse(res))
	}
}
