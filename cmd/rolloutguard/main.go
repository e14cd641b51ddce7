// Package main is the rolloutguard demo: a small host that feeds simulated
// rollout health metrics through the safetyguard rule set.
//
// The bootstrap sequence is:
//  1. Load configuration from environment variables.
//  2. Build the JSON logger and the Prometheus registry.
//  3. Start the /metrics HTTP server.
//  4. Run a safety check every CHECK_INTERVAL against a simulated rollout.
//  5. Wait for SIGINT/SIGTERM, then gracefully shut down.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rulefold/rulefold/internal/config"
	"github.com/rulefold/rulefold/internal/logging"
	"github.com/rulefold/rulefold/metrics"
	"github.com/rulefold/rulefold/safetyguard"
)

const (
	shutdownTimeout       = 5 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("rolloutguard failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	m := metrics.New()

	guard := safetyguard.New(safetyguard.Config{
		MaxErrorRate:      cfg.MaxErrorRate,
		CriticalErrorRate: cfg.CriticalErrorRate,
		MaxP99Latency:     cfg.MaxP99Latency,
		MinSampleSize:     cfg.MinSampleSize,
		BakeTime:          cfg.BakeTime,
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := newSimulation()
	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	logger.Info("rollout simulation started", "interval", cfg.CheckInterval.String())

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-errCh:
			return err
		case now := <-ticker.C:
			snapshot := sim.observe(now)
			decision := guard.Check(snapshot, now)
			m.RecordDecision(string(decision.Verdict.Action))
			if decision.Verdict.Action == safetyguard.ActionRollback {
				logger.Warn("simulated rollout rolled back, restarting stage",
					"decision_id", decision.ID.String())
				sim = newSimulation()
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// simulation produces a drifting rollout health snapshot: error rate and
// latency random-walk upward over time so every verdict eventually appears.
type simulation struct {
	startedAt time.Time
	errorRate float64
	p99       time.Duration
	samples   int
}

func newSimulation() *simulation {
	return &simulation{
		startedAt: time.Now(),
		errorRate: 0.005,
		p99:       150 * time.Millisecond,
	}
}

func (s *simulation) observe(now time.Time) safetyguard.Metrics {
	s.samples += 50 + rand.IntN(200)
	s.errorRate = max(0, s.errorRate+(rand.Float64()-0.45)*0.02)
	s.p99 += time.Duration((rand.Float64() - 0.45) * float64(100*time.Millisecond))
	if s.p99 < 10*time.Millisecond {
		s.p99 = 10 * time.Millisecond
	}

	return safetyguard.Metrics{
		ErrorRate:  s.errorRate,
		P99Latency: s.p99,
		SampleSize: s.samples,
		StartedAt:  s.startedAt,
	}
}
