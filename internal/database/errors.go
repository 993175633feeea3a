package database

import "errors"

var (
	// ErrSlotUnavailable: окно вне свободного расписания или уже занято.
	// A lost insertion race surfaces as the same condition.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrNotFound возвращается для несуществующих сущностей.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification signals a lost optimistic-version race.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrInvalidWindow: end <= start или окно выходит за пределы суток.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrCrossMidnight: start and end fall on different calendar dates.
	ErrCrossMidnight = errors.New("reservation must not cross midnight")

	// ErrPastDate запрошенная дата в прошлом.
	ErrPastDate = errors.New("date is in the past")

	// ErrDateTooFar запрошенная дата за горизонтом бронирования.
	ErrDateTooFar = errors.New("date is too far in the future")

	// ErrOverrideShape: partial overrides need both bounds, all-day none.
	ErrOverrideShape = errors.New("invalid override shape")
)
