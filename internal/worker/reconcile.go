package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"slotnik/internal/models"

	"github.com/rs/zerolog"
)

// TransferSink is the slice of the payment collaborator the worker needs.
type TransferSink interface {
	Transfer(ctx context.Context, amount int64, destinationAccount int64, metadata map[string]string) (string, error)
}

// TransferRecorder is the slice of the store the worker writes back to.
type TransferRecorder interface {
	SetTransferResult(ctx context.Context, id int64, transferRef, transferError string) error
}

// TransferTask is one payout that failed after capture and must be
// retried until it lands or exhausts the policy.
type TransferTask struct {
	ReservationID int64
	Amount        int64
	HostID        int64
	Attempt       int
	NotBefore     time.Time
}

// ReconcileWorker retries payout transfers in the background. Capture
// already happened for every queued task, so giving up still leaves the
// failure recorded on the reservation row for manual follow-up.
type ReconcileWorker struct {
	payments     TransferSink
	store        TransferRecorder
	retryPolicy  RetryPolicy
	queue        chan TransferTask
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewReconcileWorker builds a worker with sane defaults.
func NewReconcileWorker(payments TransferSink, store TransferRecorder, retry RetryPolicy, logger *zerolog.Logger) *ReconcileWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "reconcile_worker").Logger()
	}

	return &ReconcileWorker{
		payments:     payments,
		store:        store,
		retryPolicy:  retry,
		queue:        make(chan TransferTask, models.WorkerQueueSize),
		pollInterval: time.Second,
		logger:       log,
	}
}

// EnqueueTransfer schedules a payout retry for a completed reservation.
func (w *ReconcileWorker) EnqueueTransfer(ctx context.Context, reservationID int64, amount int64, hostID int64) error {
	if reservationID == 0 {
		return errors.New("reservation id is required")
	}
	if amount <= 0 {
		return errors.New("amount must be positive")
	}

	task := TransferTask{
		ReservationID: reservationID,
		Amount:        amount,
		HostID:        hostID,
		Attempt:       1,
		NotBefore:     time.Now().Add(w.retryPolicy.NextDelay(1)),
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("reconcile queue is full")
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("reconcile worker started")
	defer w.logger.Info().Msg("reconcile worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.waitAndProcess(ctx, task)
		}
	}
}

func (w *ReconcileWorker) waitAndProcess(ctx context.Context, task TransferTask) {
	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	w.processTask(ctx, task)
}

func (w *ReconcileWorker) processTask(ctx context.Context, task TransferTask) {
	ref, err := w.payments.Transfer(ctx, task.Amount, task.HostID, map[string]string{
		"reservation_id": strconv.FormatInt(task.ReservationID, 10),
		"reconciliation": "true",
	})
	if err == nil {
		if err := w.store.SetTransferResult(ctx, task.ReservationID, ref, ""); err != nil {
			w.logger.Error().Err(err).Int64("reservation_id", task.ReservationID).Msg("record transfer result failed")
		}
		w.logger.Info().Int64("reservation_id", task.ReservationID).Str("transfer_ref", ref).Msg("payout reconciled")
		return
	}

	w.retryOrFail(ctx, task, err)
}

func (w *ReconcileWorker) retryOrFail(ctx context.Context, task TransferTask, cause error) {
	if task.Attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).Int64("reservation_id", task.ReservationID).
			Int("attempts", task.Attempt).Msg("payout reconciliation exhausted retries")
		if err := w.store.SetTransferResult(ctx, task.ReservationID, "", cause.Error()); err != nil {
			w.logger.Error().Err(err).Int64("reservation_id", task.ReservationID).Msg("record transfer failure failed")
		}
		return
	}

	task.Attempt++
	task.NotBefore = time.Now().Add(w.retryPolicy.NextDelay(task.Attempt))

	select {
	case w.queue <- task:
	default:
		w.logger.Error().Int64("reservation_id", task.ReservationID).Msg("reconcile queue full, retry dropped")
	}
}
