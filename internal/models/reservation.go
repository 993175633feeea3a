package models

import "time"

type ReservationStatus string

const (
	StatusPending    ReservationStatus = "pending"
	StatusConfirmed  ReservationStatus = "confirmed"
	StatusInProgress ReservationStatus = "in_progress"
	StatusCompleted  ReservationStatus = "completed"
	StatusCancelled  ReservationStatus = "cancelled"
	StatusDisputed   ReservationStatus = "disputed"
)

// ActiveStatuses are the statuses that occupy a time slot.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusInProgress}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDisputed
}

// Active reports whether the reservation still occupies its slot.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

// Reservation is a client's claim on one time window of a host's day.
// It is created in pending and mutated only through the service's
// transition methods; cancellation is a terminal status, not a delete.
// The minute pair plus a single Date makes cross-midnight windows
// unrepresentable.
type Reservation struct {
	ID                 int64             `json:"id"`
	HostID             int64             `json:"host_id"`
	ClientID           int64             `json:"client_id"`
	Date               time.Time         `json:"date"`
	StartMinute        int               `json:"start_minute"`
	EndMinute          int               `json:"end_minute"`
	Status             ReservationStatus `json:"status"`
	Amount             int64             `json:"amount"`
	PlatformFee        int64             `json:"platform_fee"`
	Payout             int64             `json:"payout"`
	PaymentRef         string            `json:"payment_ref,omitempty"`
	TransferRef        string            `json:"transfer_ref,omitempty"`
	TransferError      string            `json:"transfer_error,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancelledBy        int64             `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Version            int64             `json:"version"`
}

func (r *Reservation) Window() TimeWindow {
	return TimeWindow{StartMinute: r.StartMinute, EndMinute: r.EndMinute}
}

// ScheduledStart returns the concrete start moment in the date's location.
func (r *Reservation) ScheduledStart() time.Time {
	return DateOnly(r.Date).Add(time.Duration(r.StartMinute) * time.Minute)
}

// ScheduledEnd returns the concrete end moment in the date's location.
func (r *Reservation) ScheduledEnd() time.Time {
	return DateOnly(r.Date).Add(time.Duration(r.EndMinute) * time.Minute)
}

// TransitionAction identifies a lifecycle operation on a reservation.
type TransitionAction string

const (
	ActionConfirm  TransitionAction = "confirm"
	ActionStart    TransitionAction = "start"
	ActionComplete TransitionAction = "complete"
	ActionCancel   TransitionAction = "cancel"
	ActionDispute  TransitionAction = "dispute"
)

func (a TransitionAction) Valid() bool {
	switch a {
	case ActionConfirm, ActionStart, ActionComplete, ActionCancel, ActionDispute:
		return true
	}
	return false
}
