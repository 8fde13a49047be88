// Package config handles environment-based configuration loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Resinat/subdecode/internal/buildinfo"
)

// Log output formats accepted by SUBDECODE_LOG_FORMAT.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// EnvConfig holds all environment-variable-driven settings.
type EnvConfig struct {
	// Network
	ListenAddress   string
	Port            int
	APIMaxBodyBytes int64

	// Auth; empty disables it.
	AdminToken string

	// Fetch
	FetchTimeout      time.Duration
	FetchMaxBodyBytes int64
	FetchRetries      int
	FetchRetryBackoff time.Duration
	UserAgent         string

	// Cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Logging
	LogLevel  logrus.Level
	LogFormat string

	// Metrics
	MetricLatencyBinWidthMS    int
	MetricLatencyBinOverflowMS int
}

// DefaultUserAgent is sent upstream when SUBDECODE_USER_AGENT is unset.
func DefaultUserAgent() string {
	return "subdecode/" + buildinfo.Version
}

// LoadEnvConfig reads environment variables and returns a validated EnvConfig.
// Every invalid value is reported in the returned error.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	var errs []string

	// --- Network ---
	cfg.ListenAddress = strings.TrimSpace(envStr("SUBDECODE_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.Port = envInt("SUBDECODE_PORT", 2270, &errs)
	cfg.APIMaxBodyBytes = envInt64("SUBDECODE_API_MAX_BODY_BYTES", 1<<20, &errs)

	// --- Auth ---
	cfg.AdminToken = os.Getenv("SUBDECODE_ADMIN_TOKEN")

	// --- Fetch ---
	cfg.FetchTimeout = envDuration("SUBDECODE_FETCH_TIMEOUT", 30*time.Second, &errs)
	cfg.FetchMaxBodyBytes = envInt64("SUBDECODE_FETCH_MAX_BODY_BYTES", 16<<20, &errs)
	cfg.FetchRetries = envInt("SUBDECODE_FETCH_RETRIES", 1, &errs)
	cfg.FetchRetryBackoff = envDuration("SUBDECODE_FETCH_RETRY_BACKOFF", 500*time.Millisecond, &errs)
	cfg.UserAgent = envStr("SUBDECODE_USER_AGENT", DefaultUserAgent())

	// --- Cache ---
	cfg.CacheTTL = envDuration("SUBDECODE_CACHE_TTL", 0, &errs)
	cfg.CacheMaxEntries = envInt("SUBDECODE_CACHE_MAX_ENTRIES", 256, &errs)

	// --- Logging ---
	levelStr := envStr("SUBDECODE_LOG_LEVEL", "info")
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		errs = append(errs, fmt.Sprintf("SUBDECODE_LOG_LEVEL: invalid level %q", levelStr))
		level = logrus.InfoLevel
	}
	cfg.LogLevel = level
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(envStr("SUBDECODE_LOG_FORMAT", LogFormatText)))

	// --- Metrics ---
	cfg.MetricLatencyBinWidthMS = envInt("SUBDECODE_METRIC_LATENCY_BIN_WIDTH_MS", 100, &errs)
	cfg.MetricLatencyBinOverflowMS = envInt("SUBDECODE_METRIC_LATENCY_BIN_OVERFLOW_MS", 10000, &errs)

	// --- Validation ---
	if cfg.ListenAddress == "" {
		errs = append(errs, "SUBDECODE_LISTEN_ADDRESS must not be empty")
	}
	validatePort("SUBDECODE_PORT", cfg.Port, &errs)
	validatePositive64("SUBDECODE_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)
	validatePositive64("SUBDECODE_FETCH_MAX_BODY_BYTES", cfg.FetchMaxBodyBytes, &errs)

	if cfg.FetchTimeout <= 0 {
		errs = append(errs, "SUBDECODE_FETCH_TIMEOUT must be positive")
	}
	if cfg.FetchRetries < 0 {
		errs = append(errs, fmt.Sprintf("SUBDECODE_FETCH_RETRIES: must be non-negative, got %d", cfg.FetchRetries))
	}
	if cfg.FetchRetryBackoff < 0 {
		errs = append(errs, "SUBDECODE_FETCH_RETRY_BACKOFF must be non-negative")
	}
	if strings.ContainsAny(cfg.UserAgent, "\r\n") {
		errs = append(errs, "SUBDECODE_USER_AGENT must not contain line breaks")
	}
	if cfg.CacheTTL < 0 {
		errs = append(errs, "SUBDECODE_CACHE_TTL must be non-negative (0 disables the cache)")
	}
	validatePositive("SUBDECODE_CACHE_MAX_ENTRIES", cfg.CacheMaxEntries, &errs)

	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Sprintf(
			"SUBDECODE_LOG_FORMAT: invalid value %q (allowed: %s, %s)",
			cfg.LogFormat, LogFormatText, LogFormatJSON,
		))
	}

	validatePositive("SUBDECODE_METRIC_LATENCY_BIN_WIDTH_MS", cfg.MetricLatencyBinWidthMS, &errs)
	validatePositive("SUBDECODE_METRIC_LATENCY_BIN_OVERFLOW_MS", cfg.MetricLatencyBinOverflowMS, &errs)
	if cfg.MetricLatencyBinOverflowMS < cfg.MetricLatencyBinWidthMS {
		errs = append(errs,
			"SUBDECODE_METRIC_LATENCY_BIN_OVERFLOW_MS must be at least SUBDECODE_METRIC_LATENCY_BIN_WIDTH_MS",
		)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// NewLogger builds the process logger from the logging settings.
func (c *EnvConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	if c.LogFormat == LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envInt64(key string, defaultVal int64, errs *[]string) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

func validatePositive64(name string, value int64, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
