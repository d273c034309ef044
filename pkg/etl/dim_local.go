package etl

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

// CapitalNames is the fixed universe of the 27 Brazilian state capitals,
// spelled as the IBGE registry spells them.
var CapitalNames = []string{
	"Aracaju", "Belém", "Belo Horizonte", "Boa Vista", "Brasília",
	"Campo Grande", "Cuiabá", "Curitiba", "Florianópolis", "Fortaleza",
	"Goiânia", "João Pessoa", "Macapá", "Maceió", "Manaus", "Natal",
	"Palmas", "Porto Alegre", "Porto Velho", "Recife", "Rio Branco",
	"Rio de Janeiro", "Salvador", "São Luís", "São Paulo", "Teresina",
	"Vitória",
}

// AmbiguousCapitals maps capital names that also exist as municipalities in
// other states to the state the capital actually belongs to. Belém (PA)
// has homonyms in Alagoas and Paraíba, Boa Vista (RR) in Paraíba, and so on.
var AmbiguousCapitals = map[string]string{
	"Belém":        "Pará",
	"Boa Vista":    "Roraima",
	"Campo Grande": "Mato Grosso do Sul",
	"Palmas":       "Tocantins",
	"Rio Branco":   "Acre",
}

// Expected columns of the IBGE municipality registry, after the six
// header-offset rows.
const (
	registryHeaderOffset = 6
	colUF                = "Nome_UF"
	colCode              = "Código Município Completo"
	colName              = "Nome_Município"
)

// IsCapitalRow reports whether a registry row with the given municipality
// and state names is the actual capital rather than a homonym. Names not in
// the ambiguity table are capitals by construction of the name filter.
func IsCapitalRow(name, uf string, ambiguous map[string]string) bool {
	want, ok := ambiguous[name]
	if !ok {
		return true
	}
	return uf == want
}

// BuildLocationDimension filters registry rows (header row included, after
// any offset rows were already skipped) down to the 27 capitals, resolves
// homonyms, sorts by municipality name and assigns keys from 1.
func BuildLocationDimension(rows [][]string, logger *slog.Logger) ([]warehouse.LocationEntry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: registry has no header row", ErrSourceFormat)
	}
	cols := columnIndex(rows[0])
	for _, c := range []string{colUF, colCode, colName} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: registry missing column %q", ErrSourceFormat, c)
		}
	}

	wanted := make(map[string]bool, len(CapitalNames))
	for _, n := range CapitalNames {
		wanted[n] = true
	}

	var capitals []warehouse.LocationEntry
	seen := make(map[string]bool)
	for _, rec := range rows[1:] {
		max := cols[colUF]
		if cols[colCode] > max {
			max = cols[colCode]
		}
		if cols[colName] > max {
			max = cols[colName]
		}
		if len(rec) <= max {
			continue
		}
		name := rec[cols[colName]]
		uf := rec[cols[colUF]]
		if !wanted[name] || !IsCapitalRow(name, uf, AmbiguousCapitals) {
			continue
		}
		if seen[name] {
			logger.Warn("duplicate capital row ignored", "nome", name, "uf", uf)
			continue
		}
		seen[name] = true
		capitals = append(capitals, warehouse.LocationEntry{
			UF:   uf,
			Code: CleanCode(rec[cols[colCode]]),
			Name: name,
		})
	}

	if len(capitals) != len(CapitalNames) {
		logger.Warn("unexpected capital count", "got", len(capitals), "want", len(CapitalNames))
	}

	sort.Slice(capitals, func(i, j int) bool { return capitals[i].Name < capitals[j].Name })
	for i := range capitals {
		capitals[i].ID = i + 1
	}
	return capitals, nil
}

// RunLocationDimension reads the registry workbook and materializes
// dim_local into the processed directory.
func RunLocationDimension(cfg *Config, logger *slog.Logger) error {
	rows, err := readSheetRows(cfg.RegistroMunicipios)
	if err != nil {
		return fmt.Errorf("read municipality registry: %w", err)
	}
	if len(rows) <= registryHeaderOffset {
		return fmt.Errorf("%w: registry shorter than its %d-row header offset", ErrSourceFormat, registryHeaderOffset)
	}

	capitals, err := BuildLocationDimension(rows[registryHeaderOffset:], logger)
	if err != nil {
		return err
	}

	out := make([][]string, len(capitals))
	for i, c := range capitals {
		out[i] = c.Row()
	}
	path := filepath.Join(cfg.ProcessadosDir, warehouse.LocationTableFile)
	if err := warehouse.WriteTable(path, warehouse.LocationColumns, out); err != nil {
		return fmt.Errorf("write dim_local: %w", err)
	}
	logger.Info("dim_local written", "rows", len(capitals))
	return nil
}
