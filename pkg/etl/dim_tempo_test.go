package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

func TestBuildTimeDimension(t *testing.T) {
	entries := BuildTimeDimension(2017, 2018)

	if want := 365 + 365; len(entries) != want {
		t.Fatalf("len = %d, want %d", len(entries), want)
	}
	if entries[0].Date.Format(warehouse.DateLayout) != "2017-01-01" {
		t.Errorf("first date = %s, want 2017-01-01", entries[0].Date.Format(warehouse.DateLayout))
	}
	if last := entries[len(entries)-1]; last.Date.Format(warehouse.DateLayout) != "2018-12-31" {
		t.Errorf("last date = %s, want 2018-12-31", last.Date.Format(warehouse.DateLayout))
	}

	seen := make(map[string]bool)
	for i, e := range entries {
		if e.ID != i+1 {
			t.Fatalf("entry %d has id %d, want %d", i, e.ID, i+1)
		}
		key := e.Date.Format(warehouse.DateLayout)
		if seen[key] {
			t.Fatalf("duplicate date %s", key)
		}
		seen[key] = true
		if e.EpiWeek < 1 || e.EpiWeek > 53 {
			t.Fatalf("%s: epidemiological week %d out of [1,53]", key, e.EpiWeek)
		}
	}
}

func TestBuildTimeDimension_LeapYear(t *testing.T) {
	entries := BuildTimeDimension(2020, 2020)
	if len(entries) != 366 {
		t.Errorf("len = %d, want 366", len(entries))
	}
}

// The first days of 2018 precede its first Sunday, so they belong to the
// last epidemiological week of 2017.
func TestBuildTimeDimension_WeekZeroBoundary(t *testing.T) {
	entries := BuildTimeDimension(2017, 2018)

	byDate := warehouse.TimeIndex(entries)
	jan1 := byDate["2018-01-01"]
	if jan1.EpiYear != 2017 || jan1.EpiWeek != 53 {
		t.Errorf("2018-01-01 epi = %d/%d, want 2017/53", jan1.EpiYear, jan1.EpiWeek)
	}
	if jan1.CivilYear != 2018 {
		t.Errorf("2018-01-01 civil year = %d, want 2018", jan1.CivilYear)
	}
	jan7 := byDate["2018-01-07"] // first Sunday of 2018
	if jan7.EpiYear != 2018 || jan7.EpiWeek != 1 {
		t.Errorf("2018-01-07 epi = %d/%d, want 2018/1", jan7.EpiYear, jan7.EpiWeek)
	}
}

func TestRunTimeDimension_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.AnoInicio, cfg.AnoFim = 2017, 2017

	path := filepath.Join(cfg.ProcessadosDir, warehouse.TimeTableFile)
	if err := RunTimeDimension(cfg, discardLogger()); err != nil {
		t.Fatalf("RunTimeDimension: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if err := RunTimeDimension(cfg, discardLogger()); err != nil {
		t.Fatalf("RunTimeDimension (rerun): %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(first) != string(second) {
		t.Error("re-running the builder changed the output bytes")
	}

	entries, err := warehouse.ReadTimeDimension(cfg.ProcessadosDir)
	if err != nil {
		t.Fatalf("ReadTimeDimension: %v", err)
	}
	if len(entries) != 365 {
		t.Errorf("rows = %d, want 365", len(entries))
	}
}
