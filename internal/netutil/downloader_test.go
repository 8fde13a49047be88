package netutil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDirectDownloader_ContextDeadlineOverridesFallbackTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(20*time.Millisecond, "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	body, err := d.Download(ctx, Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("download should succeed with caller deadline, got err=%v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body: got %q, want %q", string(body), "ok")
	}
}

func TestDirectDownloader_FallbackTimeoutWithoutContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(20*time.Millisecond, "", 0)

	_, err := d.Download(context.Background(), Request{URL: srv.URL})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDirectDownloader_RequestTimeoutWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(time.Second, "", 0)

	_, err := d.Download(context.Background(), Request{URL: srv.URL, Timeout: 20 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDirectDownloader_HeadersMethodAndUserAgent(t *testing.T) {
	type seen struct {
		method, ua, token, body string
	}
	got := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- seen{r.Method, r.Header.Get("User-Agent"), r.Header.Get("X-Token"), string(b)}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(0, "default-agent", 0)

	tests := []struct {
		name string
		req  Request
		want seen
	}{
		{
			name: "defaults",
			req:  Request{URL: srv.URL},
			want: seen{method: http.MethodGet, ua: "default-agent"},
		},
		{
			name: "header_user_agent",
			req:  Request{URL: srv.URL, Headers: map[string]string{"user-agent": "clash", "X-Token": "t"}},
			want: seen{method: http.MethodGet, ua: "clash", token: "t"},
		},
		{
			name: "explicit_user_agent_beats_header",
			req:  Request{URL: srv.URL, UserAgent: "v2rayN", Headers: map[string]string{"User-Agent": "clash"}},
			want: seen{method: http.MethodGet, ua: "v2rayN"},
		},
		{
			name: "post_with_body",
			req:  Request{URL: srv.URL, Method: "post", Body: "token=abc"},
			want: seen{method: http.MethodPost, ua: "default-agent", body: "token=abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Download(context.Background(), tt.req); err != nil {
				t.Fatalf("download: %v", err)
			}
			if s := <-got; s != tt.want {
				t.Fatalf("server saw %+v, want %+v", s, tt.want)
			}
		})
	}
}

func TestDirectDownloader_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDirectDownloader(time.Second, "", 0)
	_, err := d.Download(context.Background(), Request{URL: srv.URL})

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusForbidden || statusErr.URL != srv.URL {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestDirectDownloader_MaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	if _, err := NewDirectDownloader(time.Second, "", 64).Download(context.Background(), Request{URL: srv.URL}); err != nil {
		t.Fatalf("body at the limit should pass, got %v", err)
	}

	_, err := NewDirectDownloader(time.Second, "", 63).Download(context.Background(), Request{URL: srv.URL})
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	var nonRetryable *NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("oversized body should be non-retryable, got %T", err)
	}
}

func TestDirectDownloader_InvalidRequestIsNonRetryable(t *testing.T) {
	d := NewDirectDownloader(time.Second, "", 0)
	_, err := d.Download(context.Background(), Request{URL: "ftp://example.com/sub"})

	var nonRetryable *NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "https_get", req: Request{URL: "https://example.com/sub"}},
		{name: "http_post", req: Request{URL: "http://example.com/sub", Method: "POST"}},
		{name: "lower_case_method", req: Request{URL: "http://example.com/sub", Method: "get"}},
		{name: "headers_ok", req: Request{URL: "https://example.com", Headers: map[string]string{"Authorization": "Bearer x"}}},
		{name: "empty_url", req: Request{}, wantErr: true},
		{name: "relative_url", req: Request{URL: "/sub"}, wantErr: true},
		{name: "ftp_scheme", req: Request{URL: "ftp://example.com"}, wantErr: true},
		{name: "no_host", req: Request{URL: "https:///path"}, wantErr: true},
		{name: "put_method", req: Request{URL: "https://example.com", Method: "PUT"}, wantErr: true},
		{name: "bad_header_name", req: Request{URL: "https://example.com", Headers: map[string]string{"Bad Header": "x"}}, wantErr: true},
		{name: "bad_header_value", req: Request{URL: "https://example.com", Headers: map[string]string{"X-A": "a\r\nb"}}, wantErr: true},
		{name: "bad_user_agent", req: Request{URL: "https://example.com", UserAgent: "a\nb"}, wantErr: true},
		{name: "negative_timeout", req: Request{URL: "https://example.com", Timeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
