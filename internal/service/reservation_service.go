package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"slotnik/internal/database"
	"slotnik/internal/domain"
	"slotnik/internal/events"
	"slotnik/internal/metrics"
	"slotnik/internal/models"
	"slotnik/internal/pricing"
	"slotnik/internal/schedule"

	"github.com/rs/zerolog"
)

// ReservationService drives the reservation lifecycle: creation behind
// the conflict guard and the status state machine with its payment side
// effects.
type ReservationService struct {
	repo           domain.Repository
	payments       domain.PaymentProvider
	eventBus       domain.EventPublisher
	state          domain.StateRepository
	reconciler     domain.ReconcileWorker
	calc           *pricing.Calculator
	policy         schedule.DayPolicy
	maxBookingDays int
	logger         *zerolog.Logger

	// Per-reservation serialization point for transitions: guard check,
	// payment call and status write happen under one lock per id.
	locks sync.Map
}

func NewReservationService(
	repo domain.Repository,
	payments domain.PaymentProvider,
	eventBus domain.EventPublisher,
	state domain.StateRepository,
	reconciler domain.ReconcileWorker,
	calc *pricing.Calculator,
	policy schedule.DayPolicy,
	maxBookingDays int,
	logger *zerolog.Logger,
) *ReservationService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &ReservationService{
		repo:           repo,
		payments:       payments,
		eventBus:       eventBus,
		state:          state,
		reconciler:     reconciler,
		calc:           calc,
		policy:         policy,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

// CreateRequest carries a booking attempt.
type CreateRequest struct {
	HostID         int64
	ClientID       int64
	Start          time.Time
	End            time.Time
	HourlyRate     int64
	IdempotencyKey string
}

// validateWindow turns the request moments into (date, minutes) and
// rejects malformed input before any store access.
func (s *ReservationService) validateWindow(start, end time.Time) (time.Time, int, int, error) {
	if !end.After(start) {
		return time.Time{}, 0, 0, database.ErrInvalidWindow
	}
	if models.DateOnly(start) != models.DateOnly(end) {
		return time.Time{}, 0, 0, database.ErrCrossMidnight
	}

	date := models.DateOnly(start)
	today := models.DateOnly(time.Now())
	if date.Before(today) {
		return time.Time{}, 0, 0, database.ErrPastDate
	}
	if date.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return time.Time{}, 0, 0, database.ErrDateTooFar
	}

	return date, models.MinuteOfDay(start), models.MinuteOfDay(end), nil
}

func (s *ReservationService) resolveDay(ctx context.Context, hostID int64, date time.Time) ([]models.TimeWindow, error) {
	rule, err := s.repo.GetActiveRule(ctx, hostID, date.Weekday())
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.GetOverrides(ctx, hostID, date)
	if err != nil {
		return nil, err
	}
	return schedule.ResolveDay(rule, overrides, s.policy), nil
}

// IsAvailable reports whether [start, end) is fully contained in a free
// window and does not overlap an active reservation. This is advisory;
// the same check runs again inside the insert transaction.
func (s *ReservationService) IsAvailable(ctx context.Context, hostID int64, start, end time.Time) (bool, error) {
	date, startMin, endMin, err := s.validateWindow(start, end)
	if err != nil {
		return false, err
	}

	free, err := s.resolveDay(ctx, hostID, date)
	if err != nil {
		return false, err
	}
	if !schedule.ContainedIn(free, startMin, endMin) {
		return false, nil
	}

	overlapping, err := s.repo.CountActiveOverlapping(ctx, hostID, date, startMin, endMin)
	if err != nil {
		return false, err
	}
	return overlapping == 0, nil
}

// CheckAndReserve books a slot: validate, pre-check, price, hold funds,
// then insert behind the transactional conflict guard. A lost race
// releases the hold best-effort and surfaces ErrSlotUnavailable, the
// same condition as a failed pre-check.
func (s *ReservationService) CheckAndReserve(ctx context.Context, req CreateRequest) (*models.Reservation, error) {
	date, startMin, endMin, err := s.validateWindow(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	// Повтор с тем же ключом возвращает исходную бронь
	if req.IdempotencyKey != "" && s.state != nil {
		if id, ok, err := s.state.GetIdempotentResult(ctx, req.IdempotencyKey); err == nil && ok {
			return s.repo.GetReservation(ctx, id)
		}
	}

	if s.state != nil {
		allowed, err := s.state.CheckRateLimit(ctx, req.ClientID, models.RateLimitRequests, time.Duration(models.RateLimitWindow)*time.Second)
		if err != nil {
			s.logger.Warn().Err(err).Int64("client_id", req.ClientID).Msg("rate limit check failed, allowing request")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	available, err := s.IsAvailable(ctx, req.HostID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if !available {
		metrics.IncConflict()
		return nil, database.ErrSlotUnavailable
	}

	quote := s.calc.Compute(req.HourlyRate, endMin-startMin)

	holdRef, err := s.payments.Hold(ctx, quote.Gross, req.HostID, map[string]string{
		"host_id":   strconv.FormatInt(req.HostID, 10),
		"client_id": strconv.FormatInt(req.ClientID, 10),
		"date":      date.Format("2006-01-02"),
	})
	if err != nil {
		metrics.IncPaymentFailure("hold")
		return nil, fmt.Errorf("payment hold: %w", err)
	}

	res := &models.Reservation{
		HostID:      req.HostID,
		ClientID:    req.ClientID,
		Date:        date,
		StartMinute: startMin,
		EndMinute:   endMin,
		Status:      models.StatusPending,
		Amount:      quote.Gross,
		PlatformFee: quote.PlatformFee,
		Payout:      quote.Payout,
		PaymentRef:  holdRef,
	}

	if err := s.repo.CreateReservationWithLock(ctx, res); err != nil {
		// Проигранная гонка: снимаем холд, освобождение best-effort
		if relErr := s.payments.ReleaseHold(ctx, holdRef); relErr != nil {
			s.logger.Warn().Err(relErr).Str("hold_ref", holdRef).Msg("release hold after lost race failed")
		}
		if errors.Is(err, database.ErrSlotUnavailable) {
			metrics.IncConflict()
		}
		return nil, err
	}

	if req.IdempotencyKey != "" && s.state != nil {
		if err := s.state.SetIdempotentResult(ctx, req.IdempotencyKey, res.ID); err != nil {
			s.logger.Warn().Err(err).Str("key", req.IdempotencyKey).Msg("store idempotency key failed")
		}
	}

	metrics.IncReservationCreated()
	s.publishEvent(events.EventReservationCreated, res, req.ClientID, "")

	return res, nil
}

// Transition drives one lifecycle action. Guard order is fixed: missing
// reservation, then actor, then current status; each violation maps to a
// distinct error.
func (s *ReservationService) Transition(ctx context.Context, reservationID, actorID int64, action models.TransitionAction, reason string) (*models.Reservation, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	mu := s.lockFor(reservationID)
	mu.Lock()
	defer mu.Unlock()

	res, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	switch action {
	case models.ActionConfirm:
		err = s.confirm(ctx, res, actorID)
	case models.ActionStart:
		err = s.start(ctx, res, actorID)
	case models.ActionComplete:
		err = s.complete(ctx, res, actorID)
	case models.ActionCancel:
		err = s.cancel(ctx, res, actorID, reason)
	case models.ActionDispute:
		err = s.dispute(ctx, res, actorID)
	}
	if err != nil {
		metrics.IncTransition(string(action), "failed")
		return nil, err
	}

	metrics.IncTransition(string(action), "ok")
	return s.repo.GetReservation(ctx, reservationID)
}

func (s *ReservationService) confirm(ctx context.Context, res *models.Reservation, actorID int64) error {
	if actorID != res.HostID {
		return ErrPermissionDenied
	}
	if res.Status != models.StatusPending {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, res.Status)
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, res.ID, res.Version, models.StatusConfirmed); err != nil {
		return err
	}
	res.Status = models.StatusConfirmed
	s.publishEvent(events.EventReservationConfirmed, res, actorID, "")
	return nil
}

func (s *ReservationService) start(ctx context.Context, res *models.Reservation, actorID int64) error {
	if actorID != res.HostID {
		return ErrPermissionDenied
	}
	if res.Status != models.StatusConfirmed {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, res.Status)
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, res.ID, res.Version, models.StatusInProgress); err != nil {
		return err
	}
	res.Status = models.StatusInProgress
	s.publishEvent(events.EventReservationStarted, res, actorID, "")
	return nil
}

// complete captures the held payment, then transfers the payout. Capture
// failure aborts with the status unchanged. Transfer failure after a
// successful capture still commits COMPLETED: capture cannot be undone,
// so the failure is recorded and queued for reconciliation instead.
func (s *ReservationService) complete(ctx context.Context, res *models.Reservation, actorID int64) error {
	if actorID != res.HostID {
		return ErrPermissionDenied
	}
	if res.Status != models.StatusInProgress {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, res.Status)
	}

	if err := s.payments.Capture(ctx, res.PaymentRef); err != nil {
		metrics.IncPaymentFailure("capture")
		return fmt.Errorf("payment capture: %w", err)
	}

	transferRef, transferErr := s.payments.Transfer(ctx, res.Payout, res.HostID, map[string]string{
		"reservation_id": strconv.FormatInt(res.ID, 10),
	})

	var transferErrMsg string
	if transferErr != nil {
		metrics.IncPaymentFailure("transfer")
		transferErrMsg = transferErr.Error()
		s.logger.Error().Err(transferErr).Int64("reservation_id", res.ID).Msg("payout transfer failed, queued for reconciliation")
	}

	if err := s.repo.CompleteReservationWithVersion(ctx, res.ID, res.Version, transferRef, transferErrMsg); err != nil {
		return err
	}

	if transferErr != nil && s.reconciler != nil {
		if err := s.reconciler.EnqueueTransfer(ctx, res.ID, res.Payout, res.HostID); err != nil {
			s.logger.Error().Err(err).Int64("reservation_id", res.ID).Msg("enqueue transfer reconciliation failed")
		}
	}

	res.Status = models.StatusCompleted
	s.publishEvent(events.EventReservationCompleted, res, actorID, transferErrMsg)
	return nil
}

func (s *ReservationService) cancel(ctx context.Context, res *models.Reservation, actorID int64, reason string) error {
	if actorID != res.HostID && actorID != res.ClientID {
		return ErrPermissionDenied
	}
	if res.Status != models.StatusPending && res.Status != models.StatusConfirmed {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, res.Status)
	}

	// Снятие холда best-effort: неудача логируется, холд истечет сам
	if res.PaymentRef != "" {
		if err := s.payments.ReleaseHold(ctx, res.PaymentRef); err != nil {
			metrics.IncPaymentFailure("release")
			s.logger.Warn().Err(err).Int64("reservation_id", res.ID).Msg("release hold on cancel failed")
		}
	}

	if err := s.repo.CancelReservationWithVersion(ctx, res.ID, res.Version, actorID, reason); err != nil {
		return err
	}
	res.Status = models.StatusCancelled
	s.publishEvent(events.EventReservationCancelled, res, actorID, reason)
	return nil
}

func (s *ReservationService) dispute(ctx context.Context, res *models.Reservation, actorID int64) error {
	if actorID != res.HostID && actorID != res.ClientID {
		return ErrPermissionDenied
	}
	if res.Status.Terminal() {
		return fmt.Errorf("%w: dispute from %s", ErrInvalidTransition, res.Status)
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, res.ID, res.Version, models.StatusDisputed); err != nil {
		return err
	}
	res.Status = models.StatusDisputed
	s.publishEvent(events.EventReservationDisputed, res, actorID, "")
	return nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *ReservationService) GetHostDay(ctx context.Context, hostID int64, date time.Time) ([]*models.Reservation, error) {
	return s.repo.GetReservationsByHostDate(ctx, hostID, date)
}

func (s *ReservationService) GetClientReservations(ctx context.Context, clientID int64, from time.Time) ([]*models.Reservation, error) {
	return s.repo.GetClientReservations(ctx, clientID, from)
}

func (s *ReservationService) lockFor(id int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *ReservationService) publishEvent(eventType string, res *models.Reservation, actorID int64, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: res.ID,
		HostID:        res.HostID,
		ClientID:      res.ClientID,
		Date:          res.Date,
		StartMinute:   res.StartMinute,
		EndMinute:     res.EndMinute,
		Status:        res.Status,
		Amount:        res.Amount,
		ActorID:       actorID,
	}
	switch eventType {
	case events.EventReservationCancelled:
		payload.Reason = reason
	case events.EventReservationCompleted:
		payload.TransferError = reason
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", res.ID).Msg("publish event error")
	}
}
