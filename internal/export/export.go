package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slotnik/internal/domain"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes a host's reservation schedule to an xlsx file for
// offline reporting.
type Exporter struct {
	repo   domain.Repository
	path   string
	logger zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "export").Logger()
	}
	return &Exporter{repo: repo, path: path, logger: log}
}

// ExportHostSchedule создает Excel файл с бронированиями хоста за период
func (e *Exporter) ExportHostSchedule(ctx context.Context, hostID int64, startDate time.Time, days int) (string, error) {
	if days <= 0 {
		days = 1
	}

	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	endDate := startDate.AddDate(0, 0, days-1)
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Host %d: %s - %s",
		hostID, startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	headers := []string{"Date", "Window", "Status", "Client", "Amount", "Fee", "Payout"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	row := 3
	for day := 0; day < days; day++ {
		date := startDate.AddDate(0, 0, day)
		reservations, err := e.repo.GetReservationsByHostDate(ctx, hostID, date)
		if err != nil {
			return "", fmt.Errorf("error getting reservations: %w", err)
		}
		for _, r := range reservations {
			values := []any{
				r.Date.Format("2006-01-02"),
				r.Window().String(),
				string(r.Status),
				r.ClientID,
				r.Amount,
				r.PlatformFee,
				r.Payout,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				_ = f.SetCellValue(sheetName, cell, v)
			}
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 16)
	_ = f.MergeCell(sheetName, "A1", "G1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("host_%d_%s_to_%s.xlsx",
		hostID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule exported")
	return filePath, nil
}
