package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStateRepository is the in-process fallback for idempotency keys
// and rate limits. Entries expire lazily on read.
type MemoryStateRepository struct {
	results    sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

type idemEntry struct {
	reservationID int64
	expiresAt     time.Time
}

func (r *MemoryStateRepository) GetIdempotentResult(ctx context.Context, key string) (int64, bool, error) {
	val, ok := r.results.Load(key)
	if !ok {
		return 0, false, nil
	}
	entry := val.(*idemEntry)
	if time.Now().After(entry.expiresAt) {
		r.results.Delete(key)
		return 0, false, nil
	}
	return entry.reservationID, true, nil
}

func (r *MemoryStateRepository) SetIdempotentResult(ctx context.Context, key string, reservationID int64) error {
	r.results.Store(key, &idemEntry{
		reservationID: reservationID,
		expiresAt:     time.Now().Add(r.ttl),
	})
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(clientID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(clientID, entry)
	return entry.count <= limit, nil
}
