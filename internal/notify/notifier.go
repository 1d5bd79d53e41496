package notify

import (
	"context"
	"time"
)

// Alert is a user-visible message produced by the daemon.
type Alert struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ZoneID    string    `json:"zone_id,omitempty"`
	ZoneLabel string    `json:"zone_label,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	At        time.Time `json:"at"`
}

// Key groups alerts for rate limiting: one bucket per zone, one for system alerts.
func (a Alert) Key() string {
	if a.ZoneID == "" {
		return "system"
	}
	return a.ZoneID
}

// Notifier delivers alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
