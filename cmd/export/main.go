package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"slotnik/internal/config"
	"slotnik/internal/database"
	"slotnik/internal/export"
	"slotnik/internal/logging"
	"slotnik/internal/schedule"
)

// Offline export of a host's reservations to an xlsx file.
func main() {
	hostID := flag.Int64("host", 0, "host id to export")
	start := flag.String("start", "", "first date, YYYY-MM-DD (default today)")
	days := flag.Int("days", 7, "number of days to export")
	flag.Parse()

	if err := run(*hostID, *start, *days); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(hostID int64, start string, days int) error {
	if hostID <= 0 {
		return fmt.Errorf("-host is required")
	}

	startDate := time.Now()
	if start != "" {
		var err error
		startDate, err = time.Parse("2006-01-02", start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	policy := schedule.DayPolicy{AllDay: cfg.DayWindow()}
	db, err := database.NewDB(cfg.Database.Path, policy, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	exportPath := cfg.Exports.Path
	if exportPath == "" {
		exportPath = "exports"
	}

	exporter := export.NewExporter(db, exportPath, logger)
	filePath, err := exporter.ExportHostSchedule(context.Background(), hostID, startDate, days)
	if err != nil {
		return err
	}

	fmt.Println(filePath)
	return nil
}
