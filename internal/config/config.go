// Package config loads the rolloutguard demo configuration from environment
// variables.
//
// All variables are optional:
//   - LOG_LEVEL: minimum log level (default "info").
//   - METRICS_ADDR: listen address for the /metrics endpoint
//     (default ":9090").
//   - CHECK_INTERVAL: how often the demo runs a safety check
//     (default "5s", must be > 0 if set).
//   - MAX_ERROR_RATE: error-rate halt threshold in [0, 1]
//     (default 0.05).
//   - CRITICAL_ERROR_RATE: error-rate rollback threshold in [0, 1]
//     (default 0.20, must be >= MAX_ERROR_RATE).
//   - MAX_P99_LATENCY: tail-latency halt threshold (default "2s").
//   - MIN_SAMPLE_SIZE: samples required before metrics are trusted
//     (default "100", must be > 0 if set).
//   - BAKE_TIME: minimum observation window per rollout stage
//     (default "5m", must be > 0 if set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMetricsAddr   = ":9090"
	defaultCheckInterval = 5 * time.Second
)

// Config holds the runtime configuration for the rolloutguard demo.
type Config struct {
	LogLevel          string
	MetricsAddr       string
	CheckInterval     time.Duration
	MaxErrorRate      float64
	CriticalErrorRate float64
	MaxP99Latency     time.Duration
	MinSampleSize     int
	BakeTime          time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. It returns an error if a value fails validation.
func Load() (Config, error) {
	checkInterval := defaultCheckInterval
	if v := strings.TrimSpace(os.Getenv("CHECK_INTERVAL")); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHECK_INTERVAL: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("CHECK_INTERVAL must be > 0")
		}
		checkInterval = parsed
	}

	maxErrorRate, err := rateEnv("MAX_ERROR_RATE")
	if err != nil {
		return Config{}, err
	}
	criticalErrorRate, err := rateEnv("CRITICAL_ERROR_RATE")
	if err != nil {
		return Config{}, err
	}
	if maxErrorRate > 0 && criticalErrorRate > 0 && criticalErrorRate < maxErrorRate {
		return Config{}, errors.New("CRITICAL_ERROR_RATE must be >= MAX_ERROR_RATE")
	}

	maxP99, err := durationEnv("MAX_P99_LATENCY")
	if err != nil {
		return Config{}, err
	}
	bakeTime, err := durationEnv("BAKE_TIME")
	if err != nil {
		return Config{}, err
	}

	minSampleSize := 0
	if v := strings.TrimSpace(os.Getenv("MIN_SAMPLE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, errors.New("MIN_SAMPLE_SIZE must be a positive integer")
		}
		minSampleSize = n
	}

	return Config{
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		MetricsAddr:       envOrDefault("METRICS_ADDR", defaultMetricsAddr),
		CheckInterval:     checkInterval,
		MaxErrorRate:      maxErrorRate,
		CriticalErrorRate: criticalErrorRate,
		MaxP99Latency:     maxP99,
		MinSampleSize:     minSampleSize,
		BakeTime:          bakeTime,
	}, nil
}

// rateEnv parses an optional rate variable in [0, 1]. Zero means unset; the
// safety guard applies its own default.
func rateEnv(key string) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	rate, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if rate <= 0 || rate > 1 {
		return 0, fmt.Errorf("%s must be in (0, 1]", key)
	}
	return rate, nil
}

// durationEnv parses an optional positive duration. Zero means unset.
func durationEnv(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return parsed, nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
