package etl

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hazyhaar/dengue-dw/pkg/epiweek"
	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

// BuildTimeDimension generates one entry per calendar day in
// [startYear-01-01, endYear-12-31], keyed sequentially from 1, with civil
// and epidemiological year/week attributes. Pure function over the range.
func BuildTimeDimension(startYear, endYear int) []warehouse.TimeEntry {
	start := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, time.December, 31, 0, 0, 0, 0, time.UTC)

	var entries []warehouse.TimeEntry
	id := 1
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		epiYear, epiWeek := epiweek.Epidemiological(d)
		entries = append(entries, warehouse.TimeEntry{
			ID:         id,
			Date:       d,
			CivilYear:  d.Year(),
			CivilMonth: int(d.Month()),
			CivilDay:   d.Day(),
			EpiYear:    epiYear,
			EpiWeek:    epiWeek,
		})
		id++
	}
	return entries
}

// RunTimeDimension materializes dim_tempo into the processed directory.
func RunTimeDimension(cfg *Config, logger *slog.Logger) error {
	entries := BuildTimeDimension(cfg.AnoInicio, cfg.AnoFim)

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = e.Row()
	}
	path := filepath.Join(cfg.ProcessadosDir, warehouse.TimeTableFile)
	if err := warehouse.WriteTable(path, warehouse.TimeColumns, rows); err != nil {
		return fmt.Errorf("write dim_tempo: %w", err)
	}
	logger.Info("dim_tempo written", "rows", len(entries), "anos", fmt.Sprintf("%d-%d", cfg.AnoInicio, cfg.AnoFim))
	return nil
}
