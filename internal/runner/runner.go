// Package runner drives the startup sequence: request location access, arm
// every zone once, then hold the registration until shutdown.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/notify"
	"github.com/nholik/geofence-sentinel/internal/permission"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

const disarmTimeout = 5 * time.Second

const (
	titleForegroundDenied = "Permission to access location was denied"
	titleBackgroundDenied = "Permission to access background location was denied"
	titleUnavailable      = "Geofencing unavailable"
)

// Outcome names the state the startup sequence ended in.
type Outcome string

const (
	OutcomePending          Outcome = "pending"
	OutcomeArmed            Outcome = "armed"
	OutcomeForegroundDenied Outcome = "foreground_denied"
	OutcomeBackgroundDenied Outcome = "background_denied"
	OutcomeUnavailable      Outcome = "unavailable"
)

// AccessRequester asks for location permission.
type AccessRequester interface {
	RequestAccess(ctx context.Context) (permission.AccessResult, error)
}

// Monitor registers and removes zone geofences.
type Monitor interface {
	Arm(ctx context.Context, access permission.AccessResult, zones []zone.Zone) error
	Disarm(ctx context.Context) error
}

// Runner orchestrates startup and shutdown of zone monitoring.
type Runner struct {
	logger              zerolog.Logger
	gate                AccessRequester
	monitor             Monitor
	zones               []zone.Zone
	alerts              notify.Notifier
	allowForegroundOnly bool
	onReady             func(outcome string, armedZones int)
	newID               func() string
	now                 func() time.Time

	mu      sync.Mutex
	outcome Outcome
	err     error
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithForegroundOnly controls whether zones are armed when only background
// access was denied. Enabled by default.
func WithForegroundOnly(allow bool) Option {
	return func(r *Runner) {
		r.allowForegroundOnly = allow
	}
}

// WithReadiness is called once the startup sequence finishes, whatever its outcome.
func WithReadiness(fn func(outcome string, armedZones int)) Option {
	return func(r *Runner) {
		r.onReady = fn
	}
}

// WithIDGenerator overrides alert id generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) {
		r.newID = newID
	}
}

// WithClock overrides alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New constructs a Runner. alerts receives permission and registration failures.
func New(logger zerolog.Logger, gate AccessRequester, monitor Monitor, zones []zone.Zone, alerts notify.Notifier, opts ...Option) *Runner {
	r := &Runner{
		logger:              logger,
		gate:                gate,
		monitor:             monitor,
		zones:               zones,
		alerts:              alerts,
		allowForegroundOnly: true,
		newID:               uuid.NewString,
		now: func() time.Time {
			return time.Now().UTC()
		},
		outcome: OutcomePending,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.alerts == nil {
		r.alerts = notify.NewNoop(r.logger, "")
	}
	return r
}

// Run performs the startup sequence once and blocks until ctx is canceled,
// then disarms. Failures leave the process running in a degraded state.
func (r *Runner) Run(ctx context.Context) error {
	outcome, err := r.Start(ctx)
	if err != nil {
		r.logger.Error().Err(err).Str("outcome", string(outcome)).Msg("geofence startup incomplete")
	}

	<-ctx.Done()

	if outcome != OutcomeArmed {
		r.logger.Info().Msg("runner stopped")
		return nil
	}

	disarmCtx, cancel := context.WithTimeout(context.Background(), disarmTimeout)
	defer cancel()
	if err := r.monitor.Disarm(disarmCtx); err != nil {
		r.logger.Error().Err(err).Msg("failed to disarm geofences")
		return fmt.Errorf("disarm geofences: %w", err)
	}
	r.logger.Info().Msg("runner stopped")
	return nil
}

// Start requests access and arms the zones. It does not block.
func (r *Runner) Start(ctx context.Context) (Outcome, error) {
	outcome, err := r.start(ctx)

	r.mu.Lock()
	r.outcome = outcome
	r.err = err
	r.mu.Unlock()

	armed := 0
	if outcome == OutcomeArmed {
		armed = len(r.zones)
	}
	if r.onReady != nil {
		r.onReady(string(outcome), armed)
	}
	return outcome, err
}

func (r *Runner) start(ctx context.Context) (Outcome, error) {
	access, err := r.gate.RequestAccess(ctx)
	err = wrapStartup("request location access", err)

	switch access {
	case permission.ForegroundDenied:
		r.alert(ctx, titleForegroundDenied, "Zone alerts are disabled until location access is granted.")
		return OutcomeForegroundDenied, err
	case permission.BackgroundDenied:
		if !r.allowForegroundOnly {
			r.alert(ctx, titleBackgroundDenied, "Zone alerts are disabled until background location access is granted.")
			return OutcomeBackgroundDenied, err
		}
		r.alert(ctx, titleBackgroundDenied, "Zone alerts are limited to while the app is in use.")
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("continuing with partial location access")
	}

	if armErr := r.monitor.Arm(ctx, access, r.zones); armErr != nil {
		armErr = wrapStartup("arm geofences", armErr)
		if errors.Is(armErr, geofence.ErrPermissionMissing) {
			r.alert(ctx, titleForegroundDenied, "Zone alerts are disabled until location access is granted.")
			return OutcomeForegroundDenied, armErr
		}
		r.alert(ctx, titleUnavailable, armErr.Error())
		return OutcomeUnavailable, armErr
	}
	return OutcomeArmed, nil
}

// Outcome returns where the startup sequence ended and the error, if any.
func (r *Runner) Outcome() (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.err
}

func (r *Runner) alert(ctx context.Context, title, body string) {
	alert := notify.Alert{
		ID:    r.newID(),
		Title: title,
		Body:  body,
		At:    r.now(),
	}
	if err := r.alerts.Notify(ctx, alert); err != nil {
		r.logger.Error().Err(err).Str("title", title).Msg("failed to deliver startup alert")
	}
}
