package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotnik/internal/models"
	"slotnik/internal/schedule"
)

const reservationColumns = `id, host_id, client_id, date, start_minute, end_minute, status,
       amount, platform_fee, payout, payment_ref, transfer_ref, transfer_error,
       cancellation_reason, cancelled_by, created_at, updated_at, version`

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// CountActiveOverlapping counts reservations of the host on a date that
// occupy a slot and overlap [start, end).
func (db *DB) CountActiveOverlapping(ctx context.Context, hostID int64, date time.Time, start, end int) (int, error) {
	return countActiveOverlapping(ctx, db.DB, hostID, date, start, end)
}

func countActiveOverlapping(ctx context.Context, q querier, hostID int64, date time.Time, start, end int) (int, error) {
	query := `SELECT COUNT(*) FROM reservations
              WHERE host_id = ? AND date = ?
              AND status IN (?, ?, ?)
              AND start_minute < ? AND end_minute > ?`
	var count int
	err := q.QueryRowContext(ctx, query, hostID, date.Format(dateLayout),
		models.StatusPending, models.StatusConfirmed, models.StatusInProgress,
		end, start).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping reservations: %w", err)
	}
	return count, nil
}

// CreateReservationWithLock re-runs the full conflict check inside the
// insert transaction: schedule containment against the rule and
// overrides as stored right now, then overlap against active
// reservations. Losing the race to a concurrent insert surfaces as
// ErrSlotUnavailable, the same condition as a failed pre-check.
func (db *DB) CreateReservationWithLock(ctx context.Context, res *models.Reservation) error {
	if err := validateWindow(res.StartMinute, res.EndMinute); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Containment in the free windows, recomputed inside the tx
	rule, err := getActiveRule(ctx, tx, res.HostID, res.Date.Weekday())
	if err != nil {
		return fmt.Errorf("failed to load rule in tx: %w", err)
	}
	overrides, err := getOverrides(ctx, tx, res.HostID, res.Date)
	if err != nil {
		return fmt.Errorf("failed to load overrides in tx: %w", err)
	}
	free := schedule.ResolveDay(rule, overrides, db.policy)
	if !schedule.ContainedIn(free, res.StartMinute, res.EndMinute) {
		return ErrSlotUnavailable
	}

	// 2. Overlap with active reservations
	overlapping, err := countActiveOverlapping(ctx, tx, res.HostID, res.Date, res.StartMinute, res.EndMinute)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return ErrSlotUnavailable
	}

	// 3. Insert
	query := `INSERT INTO reservations (
				host_id, client_id, date, start_minute, end_minute, status,
				amount, platform_fee, payout, payment_ref,
				created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		res.HostID,
		res.ClientID,
		res.Date.Format(dateLayout),
		res.StartMinute,
		res.EndMinute,
		res.Status,
		res.Amount,
		res.PlatformFee,
		res.Payout,
		res.PaymentRef,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	res.ID = id
	res.CreatedAt = now
	res.UpdatedAt = now
	res.Version = 1

	return tx.Commit()
}

// UpdateReservationStatusWithVersion advances the status only when the
// caller still holds the version it read. A raced update loses with
// ErrConcurrentModification.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.ReservationStatus) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CancelReservationWithVersion records the cancelling actor and reason
// together with the terminal status.
func (db *DB) CancelReservationWithVersion(ctx context.Context, id, fromVersion, cancelledBy int64, reason string) error {
	query := `UPDATE reservations SET status = ?, cancellation_reason = ?, cancelled_by = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, models.StatusCancelled, reason, cancelledBy, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CompleteReservationWithVersion commits COMPLETED together with the
// transfer outcome. transferError non-empty means the payout is pending
// reconciliation.
func (db *DB) CompleteReservationWithVersion(ctx context.Context, id, fromVersion int64, transferRef, transferError string) error {
	query := `UPDATE reservations SET status = ?, transfer_ref = ?, transfer_error = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, models.StatusCompleted, transferRef, transferError, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to complete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// SetTransferResult records a later payout outcome (reconciliation).
func (db *DB) SetTransferResult(ctx context.Context, id int64, transferRef, transferError string) error {
	query := `UPDATE reservations SET transfer_ref = ?, transfer_error = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, transferRef, transferError, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set transfer result: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReservationsByHostDate returns all reservations of a host on a date
// ordered by start time.
func (db *DB) GetReservationsByHostDate(ctx context.Context, hostID int64, date time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE host_id = ? AND date = ? ORDER BY start_minute`
	return db.queryReservations(ctx, query, hostID, date.Format(dateLayout))
}

// GetClientReservations returns a client's reservations from the date on,
// newest first.
func (db *DB) GetClientReservations(ctx context.Context, clientID int64, from time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE client_id = ? AND date >= ? ORDER BY date DESC, start_minute DESC`
	return db.queryReservations(ctx, query, clientID, from.Format(dateLayout))
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	res := &models.Reservation{}
	var dateStr, status string
	err := row.Scan(
		&res.ID, &res.HostID, &res.ClientID, &dateStr, &res.StartMinute, &res.EndMinute, &status,
		&res.Amount, &res.PlatformFee, &res.Payout, &res.PaymentRef, &res.TransferRef, &res.TransferError,
		&res.CancellationReason, &res.CancelledBy, &res.CreatedAt, &res.UpdatedAt, &res.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	res.Status = models.ReservationStatus(status)
	res.Date, err = time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation date %s: %w", dateStr, err)
	}
	return res, nil
}
