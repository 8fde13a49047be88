package config

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadEnvConfig_Defaults(t *testing.T) {
	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertEqual(t, "ListenAddress", cfg.ListenAddress, "0.0.0.0")
	assertEqual(t, "Port", cfg.Port, 2270)
	assertEqual(t, "APIMaxBodyBytes", cfg.APIMaxBodyBytes, int64(1<<20))
	assertEqual(t, "AdminToken", cfg.AdminToken, "")

	assertEqual(t, "FetchTimeout", cfg.FetchTimeout, 30*time.Second)
	assertEqual(t, "FetchMaxBodyBytes", cfg.FetchMaxBodyBytes, int64(16<<20))
	assertEqual(t, "FetchRetries", cfg.FetchRetries, 1)
	assertEqual(t, "FetchRetryBackoff", cfg.FetchRetryBackoff, 500*time.Millisecond)
	assertEqual(t, "UserAgent", cfg.UserAgent, DefaultUserAgent())

	assertEqual(t, "CacheTTL", cfg.CacheTTL, time.Duration(0))
	assertEqual(t, "CacheMaxEntries", cfg.CacheMaxEntries, 256)

	assertEqual(t, "LogLevel", cfg.LogLevel, logrus.InfoLevel)
	assertEqual(t, "LogFormat", cfg.LogFormat, LogFormatText)

	assertEqual(t, "MetricLatencyBinWidthMS", cfg.MetricLatencyBinWidthMS, 100)
	assertEqual(t, "MetricLatencyBinOverflowMS", cfg.MetricLatencyBinOverflowMS, 10000)
}

func TestLoadEnvConfig_EnvOverrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"SUBDECODE_LISTEN_ADDRESS":                 "127.0.0.1",
		"SUBDECODE_PORT":                           "9000",
		"SUBDECODE_API_MAX_BODY_BYTES":             "2048",
		"SUBDECODE_ADMIN_TOKEN":                    "a9f73d18e5249b6a35f7419d11c603e2",
		"SUBDECODE_FETCH_TIMEOUT":                  "5s",
		"SUBDECODE_FETCH_MAX_BODY_BYTES":           "4096",
		"SUBDECODE_FETCH_RETRIES":                  "0",
		"SUBDECODE_FETCH_RETRY_BACKOFF":            "0s",
		"SUBDECODE_USER_AGENT":                     "clash-verge/1.0",
		"SUBDECODE_CACHE_TTL":                      "2m",
		"SUBDECODE_CACHE_MAX_ENTRIES":              "10",
		"SUBDECODE_LOG_LEVEL":                      "debug",
		"SUBDECODE_LOG_FORMAT":                     "JSON",
		"SUBDECODE_METRIC_LATENCY_BIN_WIDTH_MS":    "50",
		"SUBDECODE_METRIC_LATENCY_BIN_OVERFLOW_MS": "5000",
	})

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertEqual(t, "ListenAddress", cfg.ListenAddress, "127.0.0.1")
	assertEqual(t, "Port", cfg.Port, 9000)
	assertEqual(t, "APIMaxBodyBytes", cfg.APIMaxBodyBytes, int64(2048))
	assertEqual(t, "AdminToken", cfg.AdminToken, "a9f73d18e5249b6a35f7419d11c603e2")
	assertEqual(t, "FetchTimeout", cfg.FetchTimeout, 5*time.Second)
	assertEqual(t, "FetchMaxBodyBytes", cfg.FetchMaxBodyBytes, int64(4096))
	assertEqual(t, "FetchRetries", cfg.FetchRetries, 0)
	assertEqual(t, "FetchRetryBackoff", cfg.FetchRetryBackoff, time.Duration(0))
	assertEqual(t, "UserAgent", cfg.UserAgent, "clash-verge/1.0")
	assertEqual(t, "CacheTTL", cfg.CacheTTL, 2*time.Minute)
	assertEqual(t, "CacheMaxEntries", cfg.CacheMaxEntries, 10)
	assertEqual(t, "LogLevel", cfg.LogLevel, logrus.DebugLevel)
	assertEqual(t, "LogFormat", cfg.LogFormat, LogFormatJSON)
	assertEqual(t, "MetricLatencyBinWidthMS", cfg.MetricLatencyBinWidthMS, 50)
	assertEqual(t, "MetricLatencyBinOverflowMS", cfg.MetricLatencyBinOverflowMS, 5000)
}

func TestLoadEnvConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{name: "empty_listen_address", envs: map[string]string{"SUBDECODE_LISTEN_ADDRESS": "  "}, want: "SUBDECODE_LISTEN_ADDRESS"},
		{name: "port_out_of_range", envs: map[string]string{"SUBDECODE_PORT": "70000"}, want: "SUBDECODE_PORT"},
		{name: "port_not_number", envs: map[string]string{"SUBDECODE_PORT": "abc"}, want: "SUBDECODE_PORT: invalid integer"},
		{name: "zero_port", envs: map[string]string{"SUBDECODE_PORT": "0"}, want: "SUBDECODE_PORT"},
		{name: "zero_api_body", envs: map[string]string{"SUBDECODE_API_MAX_BODY_BYTES": "0"}, want: "SUBDECODE_API_MAX_BODY_BYTES"},
		{name: "bad_fetch_timeout", envs: map[string]string{"SUBDECODE_FETCH_TIMEOUT": "soon"}, want: "SUBDECODE_FETCH_TIMEOUT: invalid duration"},
		{name: "zero_fetch_timeout", envs: map[string]string{"SUBDECODE_FETCH_TIMEOUT": "0s"}, want: "SUBDECODE_FETCH_TIMEOUT must be positive"},
		{name: "negative_retries", envs: map[string]string{"SUBDECODE_FETCH_RETRIES": "-1"}, want: "SUBDECODE_FETCH_RETRIES"},
		{name: "negative_backoff", envs: map[string]string{"SUBDECODE_FETCH_RETRY_BACKOFF": "-1s"}, want: "SUBDECODE_FETCH_RETRY_BACKOFF"},
		{name: "negative_cache_ttl", envs: map[string]string{"SUBDECODE_CACHE_TTL": "-5m"}, want: "SUBDECODE_CACHE_TTL"},
		{name: "zero_cache_entries", envs: map[string]string{"SUBDECODE_CACHE_MAX_ENTRIES": "0"}, want: "SUBDECODE_CACHE_MAX_ENTRIES"},
		{name: "bad_log_level", envs: map[string]string{"SUBDECODE_LOG_LEVEL": "loud"}, want: "SUBDECODE_LOG_LEVEL"},
		{name: "bad_log_format", envs: map[string]string{"SUBDECODE_LOG_FORMAT": "xml"}, want: "SUBDECODE_LOG_FORMAT"},
		{
			name: "overflow_below_bin",
			envs: map[string]string{
				"SUBDECODE_METRIC_LATENCY_BIN_WIDTH_MS":    "500",
				"SUBDECODE_METRIC_LATENCY_BIN_OVERFLOW_MS": "100",
			},
			want: "SUBDECODE_METRIC_LATENCY_BIN_OVERFLOW_MS must be at least",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)
			_, err := LoadEnvConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnvConfig_AggregatesErrors(t *testing.T) {
	setEnvs(t, map[string]string{
		"SUBDECODE_PORT":       "0",
		"SUBDECODE_LOG_FORMAT": "xml",
		"SUBDECODE_CACHE_TTL":  "-1s",
	})

	_, err := LoadEnvConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"SUBDECODE_PORT", "SUBDECODE_LOG_FORMAT", "SUBDECODE_CACHE_TTL"} {
		assertContains(t, err.Error(), want)
	}
}

func TestEnvConfig_NewLogger(t *testing.T) {
	cfg := &EnvConfig{LogLevel: logrus.WarnLevel, LogFormat: LogFormatJSON}
	logger := cfg.NewLogger()
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %s, want warn", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("formatter = %T, want JSONFormatter", logger.Formatter)
	}

	cfg.LogFormat = LogFormatText
	if _, ok := cfg.NewLogger().Formatter.(*logrus.TextFormatter); !ok {
		t.Fatal("expected TextFormatter")
	}
}

func assertEqual[T comparable](t *testing.T, name string, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", name, got, want)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
