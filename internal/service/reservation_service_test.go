package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"slotnik/internal/database"
	"slotnik/internal/events"
	"slotnik/internal/models"
	"slotnik/internal/payments"
	"slotnik/internal/pricing"
	"slotnik/internal/repository"
	"slotnik/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReconciler captures enqueued payout retries.
type recordingReconciler struct {
	mu    sync.Mutex
	tasks []int64
}

func (r *recordingReconciler) EnqueueTransfer(ctx context.Context, reservationID int64, amount int64, hostID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, reservationID)
	return nil
}

func (r *recordingReconciler) enqueued() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.tasks...)
}

type fixture struct {
	db         *database.DB
	sandbox    *payments.Sandbox
	bus        *events.EventBus
	reconciler *recordingReconciler
	service    *ReservationService
	schedules  *ScheduleService
	date       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(zerolog.NewConsoleWriter())
	policy := schedule.DefaultDayPolicy()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), policy, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sandbox := payments.NewSandbox(&logger)
	bus := events.NewEventBus()
	reconciler := &recordingReconciler{}
	state := repository.NewMemoryStateRepository(time.Hour)
	calc := pricing.NewCalculator(15)

	svc := NewReservationService(db, sandbox, bus, state, reconciler, calc, policy, 90, &logger)
	schedules := NewScheduleService(db, policy, &logger)

	// Next Monday with a 09:00-17:00 rule.
	date := models.DateOnly(time.Now()).AddDate(0, 0, 1)
	for date.Weekday() != time.Monday {
		date = date.AddDate(0, 0, 1)
	}
	require.NoError(t, schedules.SetWeeklyRule(context.Background(), &models.RecurringRule{
		HostID:      1,
		Weekday:     time.Monday,
		StartMinute: 540,
		EndMinute:   1020,
		Active:      true,
	}))

	return &fixture{db: db, sandbox: sandbox, bus: bus, reconciler: reconciler, service: svc, schedules: schedules, date: date}
}

func (f *fixture) at(minute int) time.Time {
	return f.date.Add(time.Duration(minute) * time.Minute)
}

func (f *fixture) reserve(t *testing.T, start, end int) *models.Reservation {
	t.Helper()
	res, err := f.service.CheckAndReserve(context.Background(), CreateRequest{
		HostID:     1,
		ClientID:   100,
		Start:      f.at(start),
		End:        f.at(end),
		HourlyRate: 5000,
	})
	require.NoError(t, err)
	return res
}

func TestCheckAndReserve(t *testing.T) {
	f := newFixture(t)

	var created []string
	f.bus.Subscribe(events.EventReservationCreated, func(e *events.Event) error {
		created = append(created, e.Type)
		return nil
	})

	res := f.reserve(t, 600, 690) // 10:00-11:30

	assert.Equal(t, models.StatusPending, res.Status)
	assert.Equal(t, int64(7500), res.Amount)
	assert.Equal(t, int64(1125), res.PlatformFee)
	assert.Equal(t, int64(6375), res.Payout)
	assert.NotEmpty(t, res.PaymentRef)
	assert.Len(t, created, 1)

	state, ok := f.sandbox.HoldState(res.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "active", state)
}

func TestCheckAndReserveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// End before start.
	_, err := f.service.CheckAndReserve(ctx, CreateRequest{HostID: 1, ClientID: 100, Start: f.at(690), End: f.at(600), HourlyRate: 5000})
	assert.ErrorIs(t, err, database.ErrInvalidWindow)

	// Crosses midnight.
	_, err = f.service.CheckAndReserve(ctx, CreateRequest{HostID: 1, ClientID: 100, Start: f.at(1380), End: f.at(1500), HourlyRate: 5000})
	assert.ErrorIs(t, err, database.ErrCrossMidnight)

	// In the past.
	past := models.DateOnly(time.Now()).AddDate(0, 0, -7)
	_, err = f.service.CheckAndReserve(ctx, CreateRequest{HostID: 1, ClientID: 100, Start: past.Add(10 * time.Hour), End: past.Add(11 * time.Hour), HourlyRate: 5000})
	assert.ErrorIs(t, err, database.ErrPastDate)

	// Beyond the booking horizon.
	far := models.DateOnly(time.Now()).AddDate(0, 0, 120)
	_, err = f.service.CheckAndReserve(ctx, CreateRequest{HostID: 1, ClientID: 100, Start: far.Add(10 * time.Hour), End: far.Add(11 * time.Hour), HourlyRate: 5000})
	assert.ErrorIs(t, err, database.ErrDateTooFar)
}

func TestCheckAndReserveConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.reserve(t, 600, 720)

	_, err := f.service.CheckAndReserve(ctx, CreateRequest{
		HostID: 1, ClientID: 101, Start: f.at(660), End: f.at(780), HourlyRate: 5000,
	})
	assert.ErrorIs(t, err, database.ErrSlotUnavailable)

	// Outside the schedule entirely.
	_, err = f.service.CheckAndReserve(ctx, CreateRequest{
		HostID: 1, ClientID: 101, Start: f.at(420), End: f.at(480), HourlyRate: 5000,
	})
	assert.ErrorIs(t, err, database.ErrSlotUnavailable)
}

func TestCheckAndReserveIdempotency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := CreateRequest{
		HostID: 1, ClientID: 100, Start: f.at(600), End: f.at(690),
		HourlyRate: 5000, IdempotencyKey: "req-42",
	}

	first, err := f.service.CheckAndReserve(ctx, req)
	require.NoError(t, err)

	// Same key returns the original reservation instead of a conflict.
	second, err := f.service.CheckAndReserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different key for the same slot is a real conflict.
	req.IdempotencyKey = "req-43"
	_, err = f.service.CheckAndReserve(ctx, req)
	assert.ErrorIs(t, err, database.ErrSlotUnavailable)
}

func TestCheckAndReserveRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Exhaust the per-client attempt budget with conflicting requests.
	f.reserve(t, 600, 720)
	var rateLimited bool
	for i := 0; i < models.RateLimitRequests+5; i++ {
		_, err := f.service.CheckAndReserve(ctx, CreateRequest{
			HostID: 1, ClientID: 100, Start: f.at(600), End: f.at(720), HourlyRate: 5000,
		})
		if errors.Is(err, ErrRateLimited) {
			rateLimited = true
			break
		}
		require.ErrorIs(t, err, database.ErrSlotUnavailable)
	}
	assert.True(t, rateLimited)

	// Other clients are unaffected.
	_, err := f.service.CheckAndReserve(ctx, CreateRequest{
		HostID: 1, ClientID: 200, Start: f.at(780), End: f.at(840), HourlyRate: 5000,
	})
	assert.NoError(t, err)
}

func TestIsAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.service.IsAvailable(ctx, 1, f.at(600), f.at(690))
	require.NoError(t, err)
	assert.True(t, ok)

	f.reserve(t, 600, 690)

	ok, err = f.service.IsAvailable(ctx, 1, f.at(600), f.at(690))
	require.NoError(t, err)
	assert.False(t, ok)

	// Touching slot stays free.
	ok, err = f.service.IsAvailable(ctx, 1, f.at(690), f.at(750))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	// Only the host may confirm.
	_, err := f.service.Transition(ctx, res.ID, 100, models.ActionConfirm, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	// Confirming twice is an invalid transition.
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	_, err := f.service.Transition(ctx, res.ID, 1, models.ActionStart, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	require.NoError(t, err)

	updated, err := f.service.Transition(ctx, res.ID, 1, models.ActionStart, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
}

func TestCompleteHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	_, err := f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	require.NoError(t, err)
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionStart, "")
	require.NoError(t, err)

	updated, err := f.service.Transition(ctx, res.ID, 1, models.ActionComplete, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.NotEmpty(t, updated.TransferRef)
	assert.Empty(t, updated.TransferError)

	state, ok := f.sandbox.HoldState(res.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "captured", state)
	assert.Empty(t, f.reconciler.enqueued())
}

func TestCompleteCaptureFailureAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	_, err := f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	require.NoError(t, err)
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionStart, "")
	require.NoError(t, err)

	f.sandbox.FailCapture = true
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionComplete, "")
	require.Error(t, err)
	assert.False(t, payments.IsRecoverable(err))

	// Status unchanged, nothing queued for reconciliation.
	stored, err := f.service.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Empty(t, f.reconciler.enqueued())

	// Retrying after the failure clears succeeds.
	f.sandbox.FailCapture = false
	updated, err := f.service.Transition(ctx, res.ID, 1, models.ActionComplete, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
}

func TestCompleteTransferFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	_, err := f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	require.NoError(t, err)
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionStart, "")
	require.NoError(t, err)

	f.sandbox.FailTransfer = true
	updated, err := f.service.Transition(ctx, res.ID, 1, models.ActionComplete, "")
	require.NoError(t, err)

	// Completed anyway; the failed payout is recorded and queued.
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Empty(t, updated.TransferRef)
	assert.NotEmpty(t, updated.TransferError)
	assert.Equal(t, []int64{res.ID}, f.reconciler.enqueued())
}

func TestCancelReleasesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	var cancelled []events.ReservationEventPayload
	f.bus.Subscribe(events.EventReservationCancelled, func(e *events.Event) error {
		var p events.ReservationEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		cancelled = append(cancelled, p)
		return nil
	})

	updated, err := f.service.Transition(ctx, res.ID, 100, models.ActionCancel, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, "changed plans", updated.CancellationReason)
	assert.Equal(t, int64(100), updated.CancelledBy)

	state, ok := f.sandbox.HoldState(res.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "released", state)

	require.Len(t, cancelled, 1)
	assert.Equal(t, "changed plans", cancelled[0].Reason)
}

func TestCancelPermissionAndStatusGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	// A stranger may not cancel.
	_, err := f.service.Transition(ctx, res.ID, 999, models.ActionCancel, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Host may cancel a confirmed reservation.
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionConfirm, "")
	require.NoError(t, err)
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionCancel, "host unavailable")
	require.NoError(t, err)

	// Cancelled is terminal.
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionCancel, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelFailedReleaseStillCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	f.sandbox.FailRelease = true
	updated, err := f.service.Transition(ctx, res.ID, 100, models.ActionCancel, "late")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestDispute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reserve(t, 600, 690)

	// Either party may dispute a non-terminal reservation.
	updated, err := f.service.Transition(ctx, res.ID, 100, models.ActionDispute, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputed, updated.Status)

	// Disputed is terminal.
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionDispute, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.service.Transition(ctx, res.ID, 1, models.ActionCancel, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionUnknownAction(t *testing.T) {
	f := newFixture(t)
	res := f.reserve(t, 600, 690)

	_, err := f.service.Transition(context.Background(), res.ID, 1, "archive", "")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestTransitionMissingReservation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Transition(context.Background(), 12345, 1, models.ActionConfirm, "")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestResolveAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.schedules.AddOverride(ctx, &models.Override{
		HostID: 1, Date: f.date, Kind: models.OverrideBlocked, StartMinute: 720, EndMinute: 780,
	}))

	windows, err := f.schedules.ResolveAvailability(ctx, 1, f.date)
	require.NoError(t, err)
	assert.Equal(t, []models.TimeWindow{
		{StartMinute: 540, EndMinute: 720},
		{StartMinute: 780, EndMinute: 1020},
	}, windows)
}
