package config

import (
	"errors"
	"fmt"
	"os"

	"slotnik/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig carries the reservation policy knobs.
type BookingConfig struct {
	// DayStart/DayEnd bound the canonical all-day window (HH:MM).
	DayStart       string `yaml:"day_start"`
	DayEnd         string `yaml:"day_end"`
	FeeRatePercent int    `yaml:"fee_rate_percent"`
	MaxBookingDays int    `yaml:"max_booking_days"`
	// SeedTemplate is an optional yaml file with weekly rules loaded at
	// startup.
	SeedTemplate string `yaml:"seed_template"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	dayStart, err := models.ParseClock(c.Booking.DayStart)
	if err != nil {
		return fmt.Errorf("booking.day_start: %w", err)
	}
	dayEnd, err := models.ParseClock(c.Booking.DayEnd)
	if err != nil {
		return fmt.Errorf("booking.day_end: %w", err)
	}
	if dayEnd <= dayStart {
		return errors.New("booking.day_end must be after booking.day_start")
	}

	if c.Booking.FeeRatePercent < 0 || c.Booking.FeeRatePercent > 100 {
		return errors.New("booking.fee_rate_percent must be within [0, 100]")
	}

	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.enabled requires at least one api key")
	}

	return nil
}

// DayWindow returns the canonical all-day window from the policy fields.
// Call after Validate.
func (c *Config) DayWindow() models.TimeWindow {
	start, _ := models.ParseClock(c.Booking.DayStart)
	end, _ := models.ParseClock(c.Booking.DayEnd)
	return models.TimeWindow{StartMinute: start, EndMinute: end}
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if c.API.Enabled && !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}

	// Booking policy defaults
	if c.Booking.DayStart == "" {
		c.Booking.DayStart = models.FormatMinute(models.DefaultDayStartMinute)
	}
	if c.Booking.DayEnd == "" {
		c.Booking.DayEnd = models.FormatMinute(models.DefaultDayEndMinute)
	}
	if c.Booking.FeeRatePercent == 0 {
		c.Booking.FeeRatePercent = models.DefaultFeeRatePercent
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
}
