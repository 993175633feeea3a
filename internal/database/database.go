package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"slotnik/internal/schedule"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	log    zerolog.Logger
	policy schedule.DayPolicy
}

func NewDB(path string, policy schedule.DayPolicy, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "database").Logger()
	}
	log.Info().Str("path", path).Msg("database initialized")

	return &DB{DB: db, log: log, policy: policy}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Недельное расписание: одна активная строка на (host, weekday)
		`CREATE TABLE IF NOT EXISTS recurring_rules (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            host_id INTEGER NOT NULL,
            weekday INTEGER NOT NULL,
            start_minute INTEGER NOT NULL,
            end_minute INTEGER NOT NULL,
            active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(host_id, weekday)
        )`,
		// Точечные изменения расписания на конкретную дату
		`CREATE TABLE IF NOT EXISTS overrides (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            host_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            kind TEXT NOT NULL,
            start_minute INTEGER,
            end_minute INTEGER,
            all_day BOOLEAN NOT NULL DEFAULT 0,
            reason TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Бронирования
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            host_id INTEGER NOT NULL,
            client_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            start_minute INTEGER NOT NULL,
            end_minute INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            amount INTEGER NOT NULL DEFAULT 0,
            platform_fee INTEGER NOT NULL DEFAULT 0,
            payout INTEGER NOT NULL DEFAULT 0,
            payment_ref TEXT NOT NULL DEFAULT '',
            transfer_ref TEXT NOT NULL DEFAULT '',
            transfer_error TEXT NOT NULL DEFAULT '',
            cancellation_reason TEXT NOT NULL DEFAULT '',
            cancelled_by INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_rules_host ON recurring_rules(host_id)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_host_date ON overrides(host_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_host_date ON reservations(host_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_client ON reservations(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// DayPolicy returns the canonical-day policy the store was opened with.
func (db *DB) DayPolicy() schedule.DayPolicy {
	return db.policy
}

func (db *DB) Close() error {
	return db.DB.Close()
}
