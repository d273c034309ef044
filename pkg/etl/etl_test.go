package etl

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config rooted in a fresh temp dir; individual tests
// point the input paths at fixture files they write themselves.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ProcessadosDir = filepath.Join(dir, "processados")
	cfg.WarehouseDB = filepath.Join(dir, "dw.sqlite")
	return cfg
}

// writeTestDims materializes a time dimension over the year range and the
// given capitals into the processed dir, the way the dimension stage would.
func writeTestDims(t *testing.T, cfg *Config, startYear, endYear int, locs []warehouse.LocationEntry) {
	t.Helper()

	entries := BuildTimeDimension(startYear, endYear)
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = e.Row()
	}
	if err := warehouse.WriteTable(filepath.Join(cfg.ProcessadosDir, warehouse.TimeTableFile), warehouse.TimeColumns, rows); err != nil {
		t.Fatalf("write dim_tempo fixture: %v", err)
	}

	lrows := make([][]string, len(locs))
	for i, l := range locs {
		lrows[i] = l.Row()
	}
	if err := warehouse.WriteTable(filepath.Join(cfg.ProcessadosDir, warehouse.LocationTableFile), warehouse.LocationColumns, lrows); err != nil {
		t.Fatalf("write dim_local fixture: %v", err)
	}
}
