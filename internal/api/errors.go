package api

import (
	"errors"
	"net/http"

	"slotnik/internal/database"
	"slotnik/internal/payments"
	"slotnik/internal/service"
)

var (
	errMissingAPIKey    = errors.New("missing api key")
	errInvalidAPIKey    = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
)

// statusForError maps domain errors onto HTTP status codes. Anything
// unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrSlotUnavailable),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, database.ErrInvalidWindow),
		errors.Is(err, database.ErrCrossMidnight),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, database.ErrOverrideShape),
		errors.Is(err, service.ErrUnknownAction):
		return http.StatusBadRequest
	}

	var payErr *payments.Error
	if errors.As(err, &payErr) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
