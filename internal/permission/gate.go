package permission

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Status is the answer to a single location permission prompt.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// ParseStatus parses "granted" or "denied", case-insensitively.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusGranted:
		return StatusGranted, nil
	case StatusDenied:
		return StatusDenied, nil
	default:
		return "", fmt.Errorf("invalid permission status %q: must be granted or denied", value)
	}
}

// AccessResult summarizes the outcome of a permission request sequence.
type AccessResult string

const (
	Granted          AccessResult = "GRANTED"
	ForegroundDenied AccessResult = "FOREGROUND_DENIED"
	BackgroundDenied AccessResult = "BACKGROUND_DENIED"
)

// ForegroundGranted reports whether at least foreground access was granted.
func (r AccessResult) ForegroundGranted() bool {
	return r == Granted || r == BackgroundDenied
}

// Service prompts for location authorization.
type Service interface {
	RequestForegroundAccess(ctx context.Context) (Status, error)
	RequestBackgroundAccess(ctx context.Context) (Status, error)
}

// Gate requests foreground then background access before monitoring starts.
type Gate struct {
	logger  zerolog.Logger
	service Service
}

// NewGate returns a Gate backed by service.
func NewGate(logger zerolog.Logger, service Service) *Gate {
	return &Gate{logger: logger, service: service}
}

// RequestAccess prompts once for foreground access and, only if granted, once
// for background access. A failed prompt counts as a denial of that step.
func (g *Gate) RequestAccess(ctx context.Context) (AccessResult, error) {
	foreground, err := g.service.RequestForegroundAccess(ctx)
	if err != nil {
		return ForegroundDenied, fmt.Errorf("request foreground access: %w", err)
	}
	if foreground != StatusGranted {
		g.logger.Warn().Str("status", string(foreground)).Msg("foreground location access denied")
		return ForegroundDenied, nil
	}

	background, err := g.service.RequestBackgroundAccess(ctx)
	if err != nil {
		return BackgroundDenied, fmt.Errorf("request background access: %w", err)
	}
	if background != StatusGranted {
		g.logger.Warn().Str("status", string(background)).Msg("background location access denied")
		return BackgroundDenied, nil
	}

	g.logger.Info().Msg("location access granted")
	return Granted, nil
}
