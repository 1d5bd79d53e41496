package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRunNotifier logs alerts without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Info().
		Str("alert_id", alert.ID).
		Str("zone_id", alert.ZoneID).
		Str("kind", alert.Kind).
		Str("title", alert.Title).
		Str("body", alert.Body).
		Msg("[DRY-RUN] Would notify")
	return nil
}
