package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nholik/geofence-sentinel/internal/healthcheck"
	"github.com/nholik/geofence-sentinel/internal/metrics"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Routes mounts additional handlers on the main HTTP server.
type Routes interface {
	Register(mux *http.ServeMux)
}

// Options describes which servers to start and what they serve.
type Options struct {
	HTTPPort          int
	MetricsPort       int
	HeartbeatInterval time.Duration
	Health            *healthcheck.Tracker
	Metrics           *metrics.Metrics
	API               Routes
}

// Start launches the API/health server and, when a distinct port is set, a
// metrics server. A metrics port of 0 serves /metrics next to the API. The
// returned WaitGroup completes once every server has shut down after ctx is done.
func Start(ctx context.Context, logger zerolog.Logger, opts Options) *sync.WaitGroup {
	var wg sync.WaitGroup

	separateMetrics := opts.MetricsPort > 0 && opts.MetricsPort != opts.HTTPPort

	if opts.HTTPPort > 0 {
		mux := NewMux(opts, !separateMetrics)
		startServer(ctx, logger, &wg, mux, opts.HTTPPort, "api")
	}

	if separateMetrics {
		mux := http.NewServeMux()
		registerMetricsRoute(mux, opts.Metrics)
		startServer(ctx, logger, &wg, mux, opts.MetricsPort, "metrics")
	}

	return &wg
}

// NewMux builds the main handler: API routes, health checks and optionally /metrics.
func NewMux(opts Options, withMetrics bool) *http.ServeMux {
	mux := http.NewServeMux()
	if opts.API != nil {
		opts.API.Register(mux)
	}
	registerHealthRoutes(mux, opts.Health, opts.HeartbeatInterval)
	if withMetrics {
		registerMetricsRoute(mux, opts.Metrics)
	}
	return mux
}

func registerHealthRoutes(mux *http.ServeMux, tracker *healthcheck.Tracker, heartbeatInterval time.Duration) {
	mux.HandleFunc("/healthz", healthcheck.HealthHandler(tracker, heartbeatInterval))
	mux.HandleFunc("/readyz", healthcheck.ReadyHandler(tracker))
}

func registerMetricsRoute(mux *http.ServeMux, metricsCollector *metrics.Metrics) {
	if metricsCollector == nil {
		return
	}
	mux.Handle("/metrics", metricsCollector.Handler())
}

func startServer(ctx context.Context, logger zerolog.Logger, wg *sync.WaitGroup, handler http.Handler, port int, label string) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("server", label).Int("port", port).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server failed")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server shutdown failed")
		}
	}()
}
