package geofence

import (
	"context"
	"sync"
	"time"

	"github.com/nholik/geofence-sentinel/internal/metrics"
	"github.com/nholik/geofence-sentinel/internal/permission"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

// Handler receives deliveries from a monitoring service.
type Handler func(ctx context.Context, d Delivery)

// Service continuously monitors regions and invokes the handler on every
// membership change until disarmed.
type Service interface {
	Arm(ctx context.Context, regions []Region, handler Handler) error
	Disarm(ctx context.Context) error
}

// Sink consumes validated transition events.
type Sink interface {
	OnTransition(ctx context.Context, event TransitionEvent)
}

// Monitor arms zones with a Service and forwards valid deliveries to a Sink.
type Monitor struct {
	logger  zerolog.Logger
	service Service
	sink    Sink
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.Mutex
	armed      bool
	registered bool
}

// Option customizes Monitor behavior.
type Option func(*Monitor)

// WithMetrics records delivery metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mon *Monitor) {
		mon.metrics = m
	}
}

// WithClock overrides the timestamp source for deliveries without one.
func WithClock(now func() time.Time) Option {
	return func(mon *Monitor) {
		mon.now = now
	}
}

// NewMonitor constructs a Monitor.
func NewMonitor(logger zerolog.Logger, service Service, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		logger:  logger,
		service: service,
		sink:    sink,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Arm registers every zone in one batch. It requires at least foreground
// access and is a no-op once the monitor is armed.
func (m *Monitor) Arm(ctx context.Context, access permission.AccessResult, zones []zone.Zone) error {
	if !access.ForegroundGranted() {
		return ErrPermissionMissing
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.armed {
		m.logger.Debug().Msg("geofences already armed")
		return nil
	}

	if len(zones) == 0 {
		m.armed = true
		m.metrics.SetArmedZones(0)
		m.logger.Info().Msg("no zones configured; geofencing armed with nothing to monitor")
		return nil
	}

	regions := make([]Region, 0, len(zones))
	for _, z := range zones {
		regions = append(regions, Region{
			ID:           z.ID,
			Latitude:     z.Center.Latitude,
			Longitude:    z.Center.Longitude,
			RadiusMeters: z.RadiusMeters,
		})
	}

	if err := m.service.Arm(ctx, regions, m.Handle); err != nil {
		return &RegistrationError{Cause: err}
	}

	m.armed = true
	m.registered = true
	m.metrics.SetArmedZones(len(regions))
	m.logger.Info().
		Int("zones", len(regions)).
		Str("access", string(access)).
		Msg("geofences armed")
	return nil
}

// Disarm removes the registration. It is safe to call when not armed.
func (m *Monitor) Disarm(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.armed {
		return nil
	}
	if m.registered {
		if err := m.service.Disarm(ctx); err != nil {
			return err
		}
	}
	m.armed = false
	m.registered = false
	m.metrics.SetArmedZones(0)
	m.logger.Info().Msg("geofences disarmed")
	return nil
}

// Armed reports whether Arm has succeeded and Disarm has not been called since.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Handle validates a delivery and hands it to the sink. Failures are logged
// and never propagated, so one bad delivery cannot stop later ones.
func (m *Monitor) Handle(ctx context.Context, d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Str("zone_id", d.ZoneID).
				Msg("transition sink panicked")
		}
	}()

	event, err := d.Event()
	if err != nil {
		m.metrics.IncMalformedEvents()
		m.logger.Error().
			Err(err).
			Str("zone_id", d.ZoneID).
			Str("kind", d.Kind).
			Msg("dropping malformed geofence event")
		return
	}
	if event.At.IsZero() {
		event.At = m.now()
	}

	m.metrics.IncDeliveries(string(event.Kind))
	m.metrics.SetLastDeliveryTimestamp(event.At)
	m.sink.OnTransition(ctx, event)
}
