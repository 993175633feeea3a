package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotnik/internal/api"
	"slotnik/internal/config"
	"slotnik/internal/database"
	"slotnik/internal/domain"
	"slotnik/internal/events"
	"slotnik/internal/logging"
	"slotnik/internal/metrics"
	"slotnik/internal/models"
	"slotnik/internal/payments"
	"slotnik/internal/pricing"
	"slotnik/internal/repository"
	"slotnik/internal/schedule"
	"slotnik/internal/service"
	"slotnik/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	policy := schedule.DayPolicy{AllDay: cfg.DayWindow()}

	db, err := database.NewDB(cfg.Database.Path, policy, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedWeeklyTemplates(cfg, db, &logger); err != nil {
		return err
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	stateRepo := initStateRepository(redisClient, &logger)

	provider := payments.NewSandbox(&logger)
	eventBus := events.NewEventBus()

	reconciler := worker.NewReconcileWorker(provider, db, worker.RetryPolicy{}, &logger)

	calc := pricing.NewCalculator(cfg.Booking.FeeRatePercent)
	scheduleService := service.NewScheduleService(db, policy, &logger)
	reservationService := service.NewReservationService(
		db, provider, eventBus, stateRepo, reconciler, calc, policy, cfg.Booking.MaxBookingDays, &logger,
	)

	httpServer := api.NewHTTPServer(cfg.API, scheduleService, reservationService, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reconciler.Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedWeeklyTemplates loads optional startup rules from a yaml file and
// replaces each listed host's weekly template with them.
func seedWeeklyTemplates(cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	if cfg.Booking.SeedTemplate == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.Booking.SeedTemplate)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", cfg.Booking.SeedTemplate).Msg("read seed template")
		return err
	}

	var seed struct {
		Hosts []struct {
			HostID int64 `yaml:"host_id"`
			Rules  []struct {
				Weekday int    `yaml:"weekday"`
				Start   string `yaml:"start"`
				End     string `yaml:"end"`
			} `yaml:"rules"`
		} `yaml:"hosts"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", cfg.Booking.SeedTemplate).Msg("parse seed template")
		return err
	}

	ctx := context.Background()
	for _, host := range seed.Hosts {
		rules := make([]*models.RecurringRule, 0, len(host.Rules))
		for _, raw := range host.Rules {
			start, err := models.ParseClock(raw.Start)
			if err != nil {
				return fmt.Errorf("seed host %d weekday %d: %w", host.HostID, raw.Weekday, err)
			}
			end, err := models.ParseClock(raw.End)
			if err != nil {
				return fmt.Errorf("seed host %d weekday %d: %w", host.HostID, raw.Weekday, err)
			}
			rules = append(rules, &models.RecurringRule{
				HostID:      host.HostID,
				Weekday:     time.Weekday(raw.Weekday),
				StartMinute: start,
				EndMinute:   end,
				Active:      true,
			})
		}
		if err := db.ReplaceWeeklyTemplate(ctx, host.HostID, rules); err != nil {
			return fmt.Errorf("seed host %d: %w", host.HostID, err)
		}
		logger.Info().Int64("host_id", host.HostID).Int("rules", len(rules)).Msg("weekly template seeded")
	}

	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initStateRepository(redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	ttl := time.Duration(models.DefaultIdempotencyTTL) * time.Second
	memory := repository.NewMemoryStateRepository(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisStateRepository(redisClient, ttl)
	return repository.NewFailoverStateRepository(primary, memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Stop(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
