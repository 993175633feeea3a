package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotnik/internal/models"
)

const dateLayout = "2006-01-02"

// UpsertRecurringRule creates or replaces the rule for (host, weekday).
func (db *DB) UpsertRecurringRule(ctx context.Context, rule *models.RecurringRule) error {
	if err := validateWindow(rule.StartMinute, rule.EndMinute); err != nil {
		return err
	}

	query := `INSERT INTO recurring_rules (host_id, weekday, start_minute, end_minute, active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(host_id, weekday) DO UPDATE SET
                  start_minute = excluded.start_minute,
                  end_minute = excluded.end_minute,
                  active = excluded.active,
                  updated_at = excluded.updated_at`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query,
		rule.HostID, int(rule.Weekday), rule.StartMinute, rule.EndMinute, rule.Active, now, now,
	); err != nil {
		return fmt.Errorf("failed to upsert recurring rule: %w", err)
	}

	stored, err := db.GetActiveRule(ctx, rule.HostID, rule.Weekday)
	if err == nil && stored != nil {
		rule.ID = stored.ID
	}
	rule.UpdatedAt = now
	return nil
}

// ReplaceWeeklyTemplate swaps the whole weekly template of a host in one
// transaction.
func (db *DB) ReplaceWeeklyTemplate(ctx context.Context, hostID int64, rules []*models.RecurringRule) error {
	for _, r := range rules {
		if err := validateWindow(r.StartMinute, r.EndMinute); err != nil {
			return err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recurring_rules WHERE host_id = ?`, hostID); err != nil {
		return fmt.Errorf("failed to clear weekly template: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO recurring_rules (host_id, weekday, start_minute, end_minute, active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx, query, hostID, int(r.Weekday), r.StartMinute, r.EndMinute, r.Active, now, now); err != nil {
			return fmt.Errorf("failed to insert weekly rule: %w", err)
		}
	}

	return tx.Commit()
}

// GetActiveRule returns the active rule for (host, weekday), nil when the
// host has none.
func (db *DB) GetActiveRule(ctx context.Context, hostID int64, weekday time.Weekday) (*models.RecurringRule, error) {
	query := `SELECT id, host_id, weekday, start_minute, end_minute, active, created_at, updated_at
              FROM recurring_rules WHERE host_id = ? AND weekday = ? AND active = 1`
	rule, err := scanRule(db.QueryRowContext(ctx, query, hostID, int(weekday)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rule, err
}

// ListRules returns all rules of a host ordered by weekday.
func (db *DB) ListRules(ctx context.Context, hostID int64) ([]*models.RecurringRule, error) {
	query := `SELECT id, host_id, weekday, start_minute, end_minute, active, created_at, updated_at
              FROM recurring_rules WHERE host_id = ? ORDER BY weekday`
	rows, err := db.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteRecurringRule removes the rule for (host, weekday).
func (db *DB) DeleteRecurringRule(ctx context.Context, hostID int64, weekday time.Weekday) error {
	result, err := db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE host_id = ? AND weekday = ?`, hostID, int(weekday))
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOverride stores a date-specific schedule change.
func (db *DB) CreateOverride(ctx context.Context, o *models.Override) error {
	if !o.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrOverrideShape, o.Kind)
	}
	if o.AllDay {
		if o.StartMinute != 0 || o.EndMinute != 0 {
			return fmt.Errorf("%w: all-day override must not carry bounds", ErrOverrideShape)
		}
	} else if err := validateWindow(o.StartMinute, o.EndMinute); err != nil {
		return fmt.Errorf("%w: partial override needs valid bounds", ErrOverrideShape)
	}

	query := `INSERT INTO overrides (host_id, date, kind, start_minute, end_minute, all_day, reason, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		o.HostID, o.Date.Format(dateLayout), string(o.Kind), o.StartMinute, o.EndMinute, o.AllDay, o.Reason, now)
	if err != nil {
		return fmt.Errorf("failed to create override: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	o.ID = id
	o.CreatedAt = now
	return nil
}

// DeleteOverride removes one override by id.
func (db *DB) DeleteOverride(ctx context.Context, hostID, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM overrides WHERE id = ? AND host_id = ?`, id, hostID)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOverrides returns all overrides of a host for one date.
func (db *DB) GetOverrides(ctx context.Context, hostID int64, date time.Time) ([]*models.Override, error) {
	return getOverrides(ctx, db.DB, hostID, date)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getOverrides(ctx context.Context, q querier, hostID int64, date time.Time) ([]*models.Override, error) {
	query := `SELECT id, host_id, date, kind, start_minute, end_minute, all_day, reason, created_at
              FROM overrides WHERE host_id = ? AND date = ? ORDER BY id`
	rows, err := q.QueryContext(ctx, query, hostID, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.Override
	for rows.Next() {
		o := &models.Override{}
		var dateStr, kind string
		var start, end sql.NullInt64
		if err := rows.Scan(&o.ID, &o.HostID, &dateStr, &kind, &start, &end, &o.AllDay, &o.Reason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.Kind = models.OverrideKind(kind)
		o.StartMinute = int(start.Int64)
		o.EndMinute = int(end.Int64)
		o.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse override date %s: %w", dateStr, err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func getActiveRule(ctx context.Context, q querier, hostID int64, weekday time.Weekday) (*models.RecurringRule, error) {
	query := `SELECT id, host_id, weekday, start_minute, end_minute, active, created_at, updated_at
              FROM recurring_rules WHERE host_id = ? AND weekday = ? AND active = 1`
	rule, err := scanRule(q.QueryRowContext(ctx, query, hostID, int(weekday)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rule, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.RecurringRule, error) {
	rule := &models.RecurringRule{}
	var weekday int
	err := row.Scan(&rule.ID, &rule.HostID, &weekday, &rule.StartMinute, &rule.EndMinute,
		&rule.Active, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
	}
	rule.Weekday = time.Weekday(weekday)
	return rule, nil
}

func validateWindow(start, end int) error {
	w := models.TimeWindow{StartMinute: start, EndMinute: end}
	if !w.Valid() {
		return ErrInvalidWindow
	}
	return nil
}
