// Package transition turns zone membership changes into user-visible alerts.
package transition

import (
	"context"

	"github.com/google/uuid"
	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/metrics"
	"github.com/nholik/geofence-sentinel/internal/notify"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

const (
	resultSent   = "sent"
	resultFailed = "failed"
)

// Notifier resolves transition events against the zone registry and sends
// exactly one alert per event. It keeps no state, so duplicate or
// out-of-order deliveries each produce their own alert.
type Notifier struct {
	logger   zerolog.Logger
	registry *zone.Registry
	sink     notify.Notifier
	metrics  *metrics.Metrics
	newID    func() string
}

// Option customizes Notifier behavior.
type Option func(*Notifier)

// WithMetrics records notification metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

// WithIDGenerator overrides alert id generation.
func WithIDGenerator(newID func() string) Option {
	return func(n *Notifier) {
		n.newID = newID
	}
}

// NewNotifier constructs a transition Notifier.
func NewNotifier(logger zerolog.Logger, registry *zone.Registry, sink notify.Notifier, opts ...Option) *Notifier {
	n := &Notifier{
		logger:   logger,
		registry: registry,
		sink:     sink,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OnTransition implements geofence.Sink. Unknown zones are logged and
// suppressed; delivery failures are logged and never returned.
func (n *Notifier) OnTransition(ctx context.Context, event geofence.TransitionEvent) {
	z, ok := n.registry.Lookup(event.ZoneID)
	if !ok {
		n.metrics.IncUnknownZoneEvents()
		n.logger.Warn().
			Str("zone_id", event.ZoneID).
			Str("kind", string(event.Kind)).
			Msg("transition for unknown zone; notification suppressed")
		return
	}

	alert, ok := BuildAlert(z, event)
	if !ok {
		n.logger.Warn().
			Str("zone_id", event.ZoneID).
			Str("kind", string(event.Kind)).
			Msg("unsupported transition kind; notification suppressed")
		return
	}
	alert.ID = n.newID()

	n.logger.Info().
		Str("alert_id", alert.ID).
		Str("zone_id", z.ID).
		Str("label", z.DisplayName()).
		Str("kind", string(event.Kind)).
		Msg("zone transition")

	if err := n.sink.Notify(ctx, alert); err != nil {
		n.metrics.IncNotifications(resultFailed)
		n.logger.Error().
			Err(err).
			Str("alert_id", alert.ID).
			Str("zone_id", z.ID).
			Msg("notification delivery failed")
		return
	}
	n.metrics.IncNotifications(resultSent)
}

// BuildAlert renders the alert for a zone transition. It reports false for
// kinds other than Enter and Exit.
func BuildAlert(z zone.Zone, event geofence.TransitionEvent) (notify.Alert, bool) {
	var title, verb string
	switch event.Kind {
	case geofence.Enter:
		title, verb = "Entered Region", "entered"
	case geofence.Exit:
		title, verb = "Exited Region", "exited"
	default:
		return notify.Alert{}, false
	}

	label := z.DisplayName()
	return notify.Alert{
		Title:     title,
		Body:      "You " + verb + " " + label,
		ZoneID:    z.ID,
		ZoneLabel: label,
		Kind:      string(event.Kind),
		At:        event.At,
	}, true
}
