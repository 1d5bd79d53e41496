// Package coordinator wires configuration into the running daemon.
package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/nholik/geofence-sentinel/internal/config"
	"github.com/nholik/geofence-sentinel/internal/geocode"
	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/healthcheck"
	"github.com/nholik/geofence-sentinel/internal/ingest"
	"github.com/nholik/geofence-sentinel/internal/metrics"
	"github.com/nholik/geofence-sentinel/internal/notify"
	"github.com/nholik/geofence-sentinel/internal/permission"
	"github.com/nholik/geofence-sentinel/internal/runner"
	"github.com/nholik/geofence-sentinel/internal/server"
	"github.com/nholik/geofence-sentinel/internal/tracker"
	"github.com/nholik/geofence-sentinel/internal/transition"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

// Coordinator owns every long-lived component and runs them until shutdown.
type Coordinator struct {
	logger   zerolog.Logger
	cfg      config.Config
	registry *zone.Registry
	metrics  *metrics.Metrics
	health   *healthcheck.Tracker
	notifier notify.Notifier
	tracker  *tracker.Tracker
	monitor  *geofence.Monitor
	runner   *runner.Runner
	api      *ingest.Handlers
}

// New builds the component graph. Invalid zone data or notifier settings are
// the only fatal errors.
func New(logger zerolog.Logger, cfg config.Config) (*Coordinator, error) {
	registry, err := zone.LoadFile(cfg.ZonesFile)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}

	notifier, err := BuildNotifier(logger, cfg)
	if err != nil {
		return nil, err
	}

	geocoder, err := geocode.NewClient(
		logger.With().Str("component", "geocode").Logger(),
		cfg.GeocoderURL,
		geocode.WithUserAgent(cfg.GeocoderUserAgent),
	)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		logger:   logger,
		cfg:      cfg,
		registry: registry,
		metrics:  metrics.New(),
		health:   healthcheck.NewTracker(),
		notifier: notifier,
	}

	c.tracker = tracker.New(
		logger.With().Str("component", "tracker").Logger(),
		tracker.WithQueueSize(cfg.EventQueueSize),
		tracker.WithHeartbeat(cfg.HeartbeatInterval, c.health.RecordHeartbeat),
		tracker.WithMetrics(c.metrics),
	)

	sink := transition.NewNotifier(
		logger.With().Str("component", "transition").Logger(),
		registry,
		notifier,
		transition.WithMetrics(c.metrics),
	)

	c.monitor = geofence.NewMonitor(
		logger.With().Str("component", "monitor").Logger(),
		c.tracker,
		sink,
		geofence.WithMetrics(c.metrics),
	)

	permissionLogger := logger.With().Str("component", "permission").Logger()
	gate := permission.NewGate(
		permissionLogger,
		permission.NewStaticService(permissionLogger, cfg.ForegroundAccess, cfg.BackgroundAccess),
	)

	c.runner = runner.New(
		logger.With().Str("component", "runner").Logger(),
		gate,
		c.monitor,
		registry.Zones(),
		notifier,
		runner.WithForegroundOnly(cfg.AllowForegroundOnly),
		runner.WithReadiness(c.health.MarkReady),
	)

	c.api = ingest.New(logger.With().Str("component", "api").Logger(), c.tracker, registry, geocoder)

	return c, nil
}

// BuildNotifier assembles the alert delivery chain from configuration.
func BuildNotifier(logger zerolog.Logger, cfg config.Config) (notify.Notifier, error) {
	notifyLogger := logger.With().Str("component", "notify").Logger()

	var notifiers []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(notifyLogger, cfg.SlackWebhookURL))
	}

	webhook, err := notify.NewWebhookNotifier(notifyLogger, cfg.WebhookURL, cfg.WebhookTemplate)
	if err != nil {
		return nil, err
	}
	// a nil *WebhookNotifier would survive MultiNotifier's nil filter
	if webhook != nil {
		notifiers = append(notifiers, webhook)
	}

	var chain notify.Notifier
	switch len(notifiers) {
	case 0:
		chain = notify.NewNoop(notifyLogger, "no notification targets configured; alerts will only be logged")
	case 1:
		chain = notifiers[0]
	default:
		chain = notify.NewMultiNotifier(notifiers...)
	}

	if cfg.DryRun {
		return notify.NewDryRunNotifier(notifyLogger, chain), nil
	}
	return chain, nil
}

// Handler returns the main HTTP handler: API, health checks and metrics.
func (c *Coordinator) Handler() http.Handler {
	return server.NewMux(c.serverOptions(), true)
}

func (c *Coordinator) serverOptions() server.Options {
	return server.Options{
		HTTPPort:          c.cfg.HTTPPort,
		MetricsPort:       c.cfg.MetricsPort,
		HeartbeatInterval: c.cfg.HeartbeatInterval,
		Health:            c.health,
		Metrics:           c.metrics,
		API:               c.api,
	}
}

// Run starts the HTTP servers, the delivery worker and the startup sequence,
// and blocks until ctx is canceled and everything has stopped.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Int("zones", c.registry.Len()).
		Int("http_port", c.cfg.HTTPPort).
		Msg("starting coordinator")

	servers := server.Start(ctx, c.logger, c.serverOptions())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.tracker.Run(ctx); err != nil {
			c.logger.Error().Err(err).Msg("tracker exited with error")
		}
	}()

	runErr := c.runner.Run(ctx)

	wg.Wait()
	servers.Wait()
	c.logger.Info().Msg("coordinator stopped")
	return runErr
}

// Registry returns the loaded zones.
func (c *Coordinator) Registry() *zone.Registry {
	return c.registry
}

// Metrics returns the collector shared by every component.
func (c *Coordinator) Metrics() *metrics.Metrics {
	return c.metrics
}

// Monitor returns the geofence monitor.
func (c *Coordinator) Monitor() *geofence.Monitor {
	return c.monitor
}

// Health returns the health tracker.
func (c *Coordinator) Health() *healthcheck.Tracker {
	return c.health
}
