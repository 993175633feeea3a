package config

import (
	"os"
	"path/filepath"
	"testing"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: slotnik
  environment: test
database:
  path: /tmp/slotnik-test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, float64(10), cfg.API.RateLimit.RPS)
	assert.Equal(t, 20, cfg.API.RateLimit.Burst)
	assert.Equal(t, "08:00", cfg.Booking.DayStart)
	assert.Equal(t, "22:00", cfg.Booking.DayEnd)
	assert.Equal(t, models.DefaultFeeRatePercent, cfg.Booking.FeeRatePercent)
	assert.Equal(t, models.DefaultMaxBookingDays, cfg.Booking.MaxBookingDays)

	window := cfg.DayWindow()
	assert.Equal(t, models.DefaultDayStartMinute, window.StartMinute)
	assert.Equal(t, models.DefaultDayEndMinute, window.EndMinute)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/slotnik-test.db
api:
  enabled: true
  port: 9000
  auth:
    enabled: true
    api_keys:
      - key: secret-key
        name: admin
        permissions: ["read:availability", "write:reservations"]
booking:
  day_start: "07:30"
  day_end: "23:00"
  fee_rate_percent: 20
  max_booking_days: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 20, cfg.Booking.FeeRatePercent)
	assert.Equal(t, 30, cfg.Booking.MaxBookingDays)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "admin", cfg.API.Auth.APIKeys[0].Name)

	window := cfg.DayWindow()
	assert.Equal(t, 450, window.StartMinute)
	assert.Equal(t, 1380, window.EndMinute)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("SLOTNIK_TEST_DB", "/tmp/expanded.db")
	path := writeConfig(t, `
database:
  path: ${SLOTNIK_TEST_DB}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing database path",
			content: `app: {name: slotnik}`,
		},
		{
			name: "day end before day start",
			content: `
database: {path: /tmp/x.db}
booking: {day_start: "22:00", day_end: "08:00"}
`,
		},
		{
			name: "bad clock value",
			content: `
database: {path: /tmp/x.db}
booking: {day_start: "25:99", day_end: "26:00"}
`,
		},
		{
			name: "fee rate out of range",
			content: `
database: {path: /tmp/x.db}
booking: {fee_rate_percent: 150}
`,
		},
		{
			name: "auth enabled without keys",
			content: `
database: {path: /tmp/x.db}
api: {enabled: true}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
