package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// ErrInvalidRequest is returned by Request.Validate.
var ErrInvalidRequest = errors.New("invalid fetch request")

// ErrBodyTooLarge reports a response body that exceeded MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPStatusError indicates the server responded, but with an unexpected
// HTTP status code. This is a non-network failure.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("downloader: unexpected status %d from %s", e.StatusCode, e.URL)
}

// NonRetryableError indicates the request failed for a reason another attempt
// cannot fix (malformed request, oversized body).
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("downloader: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// Request describes one subscription fetch.
type Request struct {
	URL     string
	Method  string // GET when empty
	Headers map[string]string
	// Body is sent only with POST.
	Body      string
	UserAgent string
	// Timeout overrides the downloader default when > 0.
	Timeout time.Duration
	// NoCache skips cached bodies and refreshes the entry.
	NoCache bool
}

// NormalizedMethod returns the upper-cased method, defaulting to GET.
func (r Request) NormalizedMethod() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Validate checks the URL, method and header syntax.
func (r Request) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme must be http or https", ErrInvalidRequest)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url host is required", ErrInvalidRequest)
	}

	switch r.NormalizedMethod() {
	case http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("%w: method %q is not supported", ErrInvalidRequest, r.Method)
	}

	for name, value := range r.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("%w: invalid header name %q", ErrInvalidRequest, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("%w: invalid value for header %q", ErrInvalidRequest, name)
		}
	}
	if !httpguts.ValidHeaderFieldValue(r.UserAgent) {
		return fmt.Errorf("%w: invalid user agent", ErrInvalidRequest)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", ErrInvalidRequest)
	}
	return nil
}

// Downloader fetches remote subscription documents.
type Downloader interface {
	Download(ctx context.Context, req Request) ([]byte, error)
}

// DirectDownloader downloads via a standard HTTP client.
type DirectDownloader struct {
	Client *http.Client
	// Timeout applies when neither the request nor the context set one.
	Timeout   time.Duration
	UserAgent string
	// MaxBodyBytes caps the response body; <= 0 means unlimited.
	MaxBodyBytes int64
}

// NewDirectDownloader creates a downloader with the given defaults.
func NewDirectDownloader(timeout time.Duration, userAgent string, maxBodyBytes int64) *DirectDownloader {
	return &DirectDownloader{
		Client:       &http.Client{},
		Timeout:      timeout,
		UserAgent:    userAgent,
		MaxBodyBytes: maxBodyBytes,
	}
}

// Download fetches req.URL and returns the response body.
func (d *DirectDownloader) Download(ctx context.Context, req Request) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := req.Validate(); err != nil {
		return nil, &NonRetryableError{Err: err}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	} else if _, hasDeadline := ctx.Deadline(); !hasDeadline && d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	method := req.NormalizedMethod()
	var body io.Reader
	if method == http.MethodPost && req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &NonRetryableError{Err: err}
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if ua := d.userAgentFor(req); ua != "" {
		httpReq.Header.Set("User-Agent", ua)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("downloader: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: req.URL}
	}

	reader := io.Reader(resp.Body)
	if d.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, d.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("downloader: %w", err)
	}
	if d.MaxBodyBytes > 0 && int64(len(data)) > d.MaxBodyBytes {
		return nil, &NonRetryableError{
			Err: fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, d.MaxBodyBytes),
		}
	}
	return data, nil
}

// userAgentFor picks the explicit request user agent, then a User-Agent
// header, then the downloader default.
func (d *DirectDownloader) userAgentFor(req Request) string {
	if req.UserAgent != "" {
		return req.UserAgent
	}
	for name, value := range req.Headers {
		if strings.EqualFold(name, "User-Agent") {
			return value
		}
	}
	return d.UserAgent
}
