package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"alert":{{ toJson .Alert }},"generated_at":{{ toJson .GeneratedAt }}}`

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Alert       Alert
	GeneratedAt time.Time
}

// WebhookNotifier sends alerts to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *httpPoster
}

// NewWebhookNotifier creates a webhook notifier with the provided template.
// It returns nil when webhookURL is empty.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, tmpl string) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newHTTPPoster(logger, "webhook", webhookURL, "application/json", defaultTiming),
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	if n == nil {
		return nil
	}

	if err := n.poster.waitForRateLimit(ctx, alert.Key()); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := n.template.Execute(&buf, WebhookPayload{Alert: alert, GeneratedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := n.poster.postWithRetry(ctx, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().
		Str("alert_id", alert.ID).
		Str("zone_id", alert.ZoneID).
		Msg("webhook notification sent")

	return nil
}
