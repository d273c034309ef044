package etl

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

func TestIsCapitalRow(t *testing.T) {
	tests := []struct {
		name, uf string
		want     bool
	}{
		{"Belém", "Pará", true},
		{"Belém", "Alagoas", false}, // homonym
		{"Belém", "Paraíba", false},
		{"Palmas", "Tocantins", true},
		{"Palmas", "Paraná", false},
		{"Boa Vista", "Roraima", true},
		{"Campo Grande", "Mato Grosso do Sul", true},
		{"Campo Grande", "Alagoas", false},
		{"Rio Branco", "Acre", true},
		{"São Paulo", "São Paulo", true}, // not ambiguous: passes regardless
		{"Curitiba", "Paraná", true},
	}
	for _, tt := range tests {
		if got := IsCapitalRow(tt.name, tt.uf, AmbiguousCapitals); got != tt.want {
			t.Errorf("IsCapitalRow(%q, %q) = %v, want %v", tt.name, tt.uf, got, tt.want)
		}
	}
}

func registryRows() [][]string {
	return [][]string{
		{"Nome_UF", "Código Município Completo", "Nome_Município"},
		{"Pará", "1501402", "Belém"},
		{"Alagoas", "2700805", "Belém"},   // homonym, must be dropped
		{"Paraíba", "2501906", "Belém"},   // homonym, must be dropped
		{"São Paulo", "3550308.0", "São Paulo"}, // float artifact on the code
		{"Tocantins", "1721000", "Palmas"},
		{"Paraná", "4117602", "Palmas"}, // homonym, must be dropped
		{"São Paulo", "3509502", "Campinas"}, // not a capital
		{"Sergipe", "2800308", "Aracaju"},
	}
}

func TestBuildLocationDimension(t *testing.T) {
	entries, err := BuildLocationDimension(registryRows(), discardLogger())
	if err != nil {
		t.Fatalf("BuildLocationDimension: %v", err)
	}

	// Sorted by name: Aracaju, Belém, Palmas, São Paulo.
	want := []warehouse.LocationEntry{
		{ID: 1, UF: "Sergipe", Code: "2800308", Name: "Aracaju"},
		{ID: 2, UF: "Pará", Code: "1501402", Name: "Belém"},
		{ID: 3, UF: "Tocantins", Code: "1721000", Name: "Palmas"},
		{ID: 4, UF: "São Paulo", Code: "3550308", Name: "São Paulo"},
	}
	if len(entries) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(entries), len(want), entries)
	}
	for i, w := range want {
		if entries[i] != w {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], w)
		}
	}
}

func TestBuildLocationDimension_MissingColumns(t *testing.T) {
	_, err := BuildLocationDimension([][]string{{"UF", "Codigo"}}, discardLogger())
	if err == nil {
		t.Fatal("expected error for missing registry columns")
	}
}

func TestRunLocationDimension(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistroMunicipios = filepath.Join(t.TempDir(), "registro.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	// Six offset rows before the real header, as in the IBGE workbook.
	row := 1
	for ; row <= registryHeaderOffset; row++ {
		f.SetCellValue(sheet, "A"+strconv.Itoa(row), "cabecalho")
	}
	for _, rec := range registryRows() {
		cells := make([]interface{}, len(rec))
		for i, v := range rec {
			cells[i] = v
		}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &cells); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
		row++
	}
	if err := f.SaveAs(cfg.RegistroMunicipios); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	if err := RunLocationDimension(cfg, discardLogger()); err != nil {
		t.Fatalf("RunLocationDimension: %v", err)
	}

	entries, err := warehouse.ReadLocationDimension(cfg.ProcessadosDir)
	if err != nil {
		t.Fatalf("ReadLocationDimension: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("rows = %d, want 4", len(entries))
	}
	if entries[1].Name != "Belém" || entries[1].UF != "Pará" {
		t.Errorf("entry 2 = %+v, want Belém/Pará", entries[1])
	}
	if entries[3].Code != "3550308" {
		t.Errorf("São Paulo code = %q, want 3550308 (artifact stripped)", entries[3].Code)
	}
}

func TestRunLocationDimension_SourceMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistroMunicipios = filepath.Join(t.TempDir(), "nonexistent.xlsx")
	err := RunLocationDimension(cfg, discardLogger())
	if err == nil {
		t.Fatal("expected error for missing registry")
	}
}
