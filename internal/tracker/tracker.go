// Package tracker is an in-process geofence monitoring service. It evaluates
// pushed position fixes against armed regions and relays platform-detected
// transitions, delivering both through a single ordered queue.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/metrics"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

const (
	defaultQueueSize         = 64
	defaultHeartbeatInterval = 30 * time.Second
)

var (
	// ErrNotArmed is returned when positions or events arrive before Arm.
	ErrNotArmed = errors.New("geofences not armed")
	// ErrInvalidPosition is returned for fixes outside coordinate bounds.
	ErrInvalidPosition = errors.New("invalid position")
)

// Position is a single device location fix.
type Position struct {
	Coordinate     zone.Coordinate
	AccuracyMeters float64
	RecordedAt     time.Time
}

type queued struct {
	handler  geofence.Handler
	delivery geofence.Delivery
}

// Tracker implements geofence.Service.
type Tracker struct {
	logger            zerolog.Logger
	metrics           *metrics.Metrics
	queue             chan queued
	heartbeatInterval time.Duration
	tickerFactory     func(time.Duration) Ticker
	onHeartbeat       func(time.Time)
	now               func() time.Time

	// serializes senders so queue order matches detection order
	sendSlot chan struct{}

	mu      sync.Mutex
	handler geofence.Handler
	regions []geofence.Region
	inside  map[string]bool
}

// Option customizes Tracker behavior.
type Option func(*Tracker)

// WithQueueSize sets the delivery queue capacity.
func WithQueueSize(size int) Option {
	return func(t *Tracker) {
		if size > 0 {
			t.queue = make(chan queued, size)
		}
	}
}

// WithHeartbeat calls fn from the worker goroutine every interval.
func WithHeartbeat(interval time.Duration, fn func(time.Time)) Option {
	return func(t *Tracker) {
		if interval > 0 {
			t.heartbeatInterval = interval
		}
		t.onHeartbeat = fn
	}
}

// WithTickerFactory overrides how heartbeat tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(t *Tracker) {
		t.tickerFactory = factory
	}
}

// WithMetrics records position metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithClock overrides the timestamp source for fixes without one.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New constructs a Tracker. Deliveries only flow while Run is active.
func New(logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		logger:            logger,
		queue:             make(chan queued, defaultQueueSize),
		sendSlot:          make(chan struct{}, 1),
		heartbeatInterval: defaultHeartbeatInterval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Arm implements geofence.Service. The batch is validated as a whole and
// replaces any previous registration; membership starts out unknown.
func (t *Tracker) Arm(_ context.Context, regions []geofence.Region, handler geofence.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	seen := make(map[string]struct{}, len(regions))
	for _, region := range regions {
		if region.ID == "" {
			return errors.New("region id is required")
		}
		if _, dup := seen[region.ID]; dup {
			return fmt.Errorf("region %q: duplicate id", region.ID)
		}
		seen[region.ID] = struct{}{}
		if !(region.RadiusMeters > 0) {
			return fmt.Errorf("region %q: radius must be positive", region.ID)
		}
		if err := (zone.Coordinate{Latitude: region.Latitude, Longitude: region.Longitude}).Validate(); err != nil {
			return fmt.Errorf("region %q: %w", region.ID, err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.regions = append([]geofence.Region(nil), regions...)
	t.handler = handler
	t.inside = make(map[string]bool, len(regions))

	t.logger.Info().Int("regions", len(regions)).Msg("tracker armed")
	return nil
}

// Disarm implements geofence.Service. Deliveries already queued are still handed over.
func (t *Tracker) Disarm(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.regions = nil
	t.handler = nil
	t.inside = nil
	t.logger.Info().Msg("tracker disarmed")
	return nil
}

// Update evaluates a position fix and queues an Enter or Exit for every
// region whose membership flipped. The first fix inside a region counts as Enter.
func (t *Tracker) Update(ctx context.Context, pos Position) error {
	if err := pos.Coordinate.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	at := pos.RecordedAt
	if at.IsZero() {
		at = t.now()
	}

	// taken before evaluating so concurrent fixes queue in detection order
	if err := t.acquireSend(ctx); err != nil {
		return err
	}
	defer t.releaseSend()

	t.mu.Lock()
	handler := t.handler
	if handler == nil {
		t.mu.Unlock()
		return ErrNotArmed
	}
	t.metrics.IncPositions()

	var pending []geofence.Delivery
	for _, region := range t.regions {
		center := zone.Coordinate{Latitude: region.Latitude, Longitude: region.Longitude}
		in := zone.Distance(center, pos.Coordinate) <= region.RadiusMeters
		was, known := t.inside[region.ID]
		t.inside[region.ID] = in

		var kind geofence.Kind
		switch {
		case in && (!known || !was):
			kind = geofence.Enter
		case !in && known && was:
			kind = geofence.Exit
		default:
			continue
		}

		t.logger.Debug().
			Str("zone_id", region.ID).
			Str("kind", string(kind)).
			Float64("accuracy_m", pos.AccuracyMeters).
			Msg("membership changed")
		pending = append(pending, geofence.Delivery{ZoneID: region.ID, Kind: string(kind), At: at})
	}
	t.mu.Unlock()

	for i, d := range pending {
		if err := t.enqueue(ctx, handler, d); err != nil {
			t.logger.Warn().
				Err(err).
				Int("dropped", len(pending)-i).
				Msg("delivery queue full; transitions dropped")
			return err
		}
	}
	return nil
}

// Relay queues a delivery reported by a platform geofencing service.
func (t *Tracker) Relay(ctx context.Context, d geofence.Delivery) error {
	if err := t.acquireSend(ctx); err != nil {
		return err
	}
	defer t.releaseSend()

	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	if handler == nil {
		return ErrNotArmed
	}
	if d.At.IsZero() {
		d.At = t.now()
	}
	return t.enqueue(ctx, handler, d)
}

// Inside reports the last known membership for a region.
func (t *Tracker) Inside(regionID string) (inside bool, known bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	inside, known = t.inside[regionID]
	return inside, known
}

func (t *Tracker) acquireSend(ctx context.Context) error {
	select {
	case t.sendSlot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) releaseSend() {
	<-t.sendSlot
}

func (t *Tracker) enqueue(ctx context.Context, handler geofence.Handler, d geofence.Delivery) error {
	select {
	case t.queue <- queued{handler: handler, delivery: d}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the delivery queue on the calling goroutine until ctx is canceled.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := t.tickerFactory(t.heartbeatInterval)
	defer ticker.Stop()

	t.heartbeat()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("tracker stopped")
			return nil
		case item := <-t.queue:
			item.handler(ctx, item.delivery)
		case <-ticker.C():
			t.heartbeat()
		}
	}
}

func (t *Tracker) heartbeat() {
	if t.onHeartbeat != nil {
		t.onHeartbeat(t.now())
	}
}
