package repository

import (
	"context"
	"sync/atomic"
	"time"

	"slotnik/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverStateRepository prefers the primary (redis) and falls back to
// the in-memory repository when the primary starts failing; it probes
// the primary again after a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) GetIdempotentResult(ctx context.Context, key string) (int64, bool, error) {
	if !r.isDown.Load() {
		id, ok, err := r.primary.GetIdempotentResult(ctx, key)
		if err == nil {
			return id, ok, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		id, ok, err := r.primary.GetIdempotentResult(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return id, ok, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetIdempotentResult(ctx, key)
}

func (r *FailoverStateRepository) SetIdempotentResult(ctx context.Context, key string, reservationID int64) error {
	if !r.isDown.Load() {
		err := r.primary.SetIdempotentResult(ctx, key, reservationID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetIdempotentResult(ctx, key, reservationID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, clientID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, clientID, limit, window)
}
