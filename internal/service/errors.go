package service

import "errors"

var (
	// ErrPermissionDenied: the actor is not allowed to drive this
	// transition (wrong role for the reservation).
	ErrPermissionDenied = errors.New("actor is not permitted to perform this transition")

	// ErrInvalidTransition: действие недопустимо из текущего статуса.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownAction is returned for an unrecognized transition action.
	ErrUnknownAction = errors.New("unknown transition action")

	// ErrRateLimited: клиент превысил лимит попыток бронирования.
	ErrRateLimited = errors.New("too many booking attempts")
)
