package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	timing     timingConfig
	poster     *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack alerts disabled")
	}

	notifier := &SlackNotifier{
		logger:     logger,
		webhookURL: webhookURL,
		timing:     defaultTiming,
	}

	for _, opt := range opts {
		opt(notifier)
	}

	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	if err := n.poster.waitForRateLimit(ctx, alert.Key()); err != nil {
		return err
	}

	payload, err := json.Marshal(buildSlackMessage(alert))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Str("alert_id", alert.ID).
		Str("zone_id", alert.ZoneID).
		Msg("slack notification sent")

	return nil
}

func (n *SlackNotifier) postOnce(ctx context.Context, payload []byte) error {
	return n.poster.postOnce(ctx, payload)
}

func buildSlackMessage(alert Alert) slack.WebhookMessage {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", kindEmoji(alert.Kind)+alert.Title, true, false))
	body := slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", alert.Body, false, false), nil, nil)

	contextElements := make([]slack.MixedElement, 0, 2)
	if alert.ZoneID != "" {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Zone: *%s* (`%s`)", alert.ZoneLabel, alert.ZoneID), false, false))
	}
	if !alert.At.IsZero() {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", "At: "+alert.At.UTC().Format(time.RFC3339), false, false))
	}

	blocks := []slack.Block{header, body}
	if len(contextElements) > 0 {
		blocks = append(blocks, slack.NewContextBlock("", contextElements...))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   fmt.Sprintf("%s: %s", alert.Title, alert.Body),
		Blocks: &blockSet,
	}
}

func kindEmoji(kind string) string {
	switch kind {
	case "ENTER":
		return ":round_pushpin: "
	case "EXIT":
		return ":door: "
	default:
		return ""
	}
}
