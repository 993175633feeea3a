package domain

import (
	"context"
	"time"

	"slotnik/internal/models"
)

// Repository is the storage surface the services depend on.
type Repository interface {
	// Weekly schedule
	UpsertRecurringRule(ctx context.Context, rule *models.RecurringRule) error
	ReplaceWeeklyTemplate(ctx context.Context, hostID int64, rules []*models.RecurringRule) error
	GetActiveRule(ctx context.Context, hostID int64, weekday time.Weekday) (*models.RecurringRule, error)
	ListRules(ctx context.Context, hostID int64) ([]*models.RecurringRule, error)
	DeleteRecurringRule(ctx context.Context, hostID int64, weekday time.Weekday) error

	// Date overrides
	CreateOverride(ctx context.Context, o *models.Override) error
	DeleteOverride(ctx context.Context, hostID, id int64) error
	GetOverrides(ctx context.Context, hostID int64, date time.Time) ([]*models.Override, error)

	// Reservations
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CountActiveOverlapping(ctx context.Context, hostID int64, date time.Time, start, end int) (int, error)
	CreateReservationWithLock(ctx context.Context, res *models.Reservation) error
	UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.ReservationStatus) error
	CancelReservationWithVersion(ctx context.Context, id, fromVersion, cancelledBy int64, reason string) error
	CompleteReservationWithVersion(ctx context.Context, id, fromVersion int64, transferRef, transferError string) error
	SetTransferResult(ctx context.Context, id int64, transferRef, transferError string) error
	GetReservationsByHostDate(ctx context.Context, hostID int64, date time.Time) ([]*models.Reservation, error)
	GetClientReservations(ctx context.Context, clientID int64, from time.Time) ([]*models.Reservation, error)
}

// PaymentProvider is the external payment collaborator. Calls are
// synchronous from the caller's view; retry policy lives behind the
// interface, not in the state machine.
type PaymentProvider interface {
	Hold(ctx context.Context, amount int64, destinationAccount int64, metadata map[string]string) (string, error)
	ReleaseHold(ctx context.Context, holdRef string) error
	Capture(ctx context.Context, holdRef string) error
	Transfer(ctx context.Context, amount int64, destinationAccount int64, metadata map[string]string) (string, error)
}

// EventPublisher fans domain events out to in-process consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// StateRepository keeps short-lived request state: idempotency keys and
// client rate-limit counters.
type StateRepository interface {
	GetIdempotentResult(ctx context.Context, key string) (int64, bool, error)
	SetIdempotentResult(ctx context.Context, key string, reservationID int64) error
	CheckRateLimit(ctx context.Context, clientID int64, limit int, window time.Duration) (bool, error)
}

// ReconcileWorker retries payout transfers that failed after capture.
type ReconcileWorker interface {
	EnqueueTransfer(ctx context.Context, reservationID int64, amount int64, hostID int64) error
}
