package permission

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// StaticService answers prompts with consent recorded in configuration.
type StaticService struct {
	logger     zerolog.Logger
	foreground Status
	background Status
	prompts    atomic.Int64
}

// NewStaticService returns a Service that always answers with the given statuses.
func NewStaticService(logger zerolog.Logger, foreground, background Status) *StaticService {
	return &StaticService{
		logger:     logger,
		foreground: foreground,
		background: background,
	}
}

// RequestForegroundAccess implements Service.
func (s *StaticService) RequestForegroundAccess(ctx context.Context) (Status, error) {
	return s.answer(ctx, "foreground", s.foreground)
}

// RequestBackgroundAccess implements Service.
func (s *StaticService) RequestBackgroundAccess(ctx context.Context) (Status, error) {
	return s.answer(ctx, "background", s.background)
}

// Prompts returns how many prompts have been answered.
func (s *StaticService) Prompts() int64 {
	return s.prompts.Load()
}

func (s *StaticService) answer(ctx context.Context, scope string, status Status) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusDenied, err
	}
	s.prompts.Add(1)
	s.logger.Debug().Str("scope", scope).Str("status", string(status)).Msg("location permission requested")
	return status, nil
}
