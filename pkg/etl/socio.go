package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

// SNIS sanitation columns. "atentida" is how the source itself spells it.
const (
	snisYearCol   = "ano"
	snisCodeCol   = "id_municipio"
	snisWaterCol  = "populacao_atendida_agua"
	snisSewageCol = "populacao_atentida_esgoto"
)

var snisSchema = Schema{Name: "snis", Required: []string{snisYearCol, snisCodeCol, snisWaterCol, snisSewageCol}}

// Population source columns.
const (
	popYearCol  = "ano"
	popCodeCol  = "id_municipio"
	popValueCol = "populacao"
)

var popSchema = Schema{Name: "populacao", Required: []string{popYearCol, popCodeCol, popValueCol}}

// Column-name variants of the per-year IBGE territorial-area workbooks.
var (
	areaCodeCols = []string{"CD_MUN", "CD_GCMUN"}
	areaColsFor  = func(year int) []string {
		return []string{"AR_MUN_" + strconv.Itoa(year), "AR_MUN"}
	}
)

// yearCode keys the three socioeconomic sources once their municipality
// codes are truncated to the 6-digit form.
type yearCode struct {
	year  int
	code6 string
}

type sanitation struct {
	water  int
	sewage int
}

// readCommaCSV opens a comma-delimited source and hands back header+rows.
// files here are small enough (per-municipality per-year) to read eagerly.
func readCommaCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ','
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// readSanitation loads the SNIS water/sewage coverage per year and
// municipality. Rows with unparseable keys are dropped.
func readSanitation(path string) (map[yearCode]sanitation, error) {
	header, rows, err := readCommaCSV(path)
	if err != nil {
		return nil, err
	}
	_, cols, err := DetectSchema(header, []Schema{snisSchema})
	if err != nil {
		return nil, fmt.Errorf("sanitation source: %w", err)
	}

	out := make(map[yearCode]sanitation)
	for _, rec := range rows {
		get := func(name string) string {
			if i := cols[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		year, okY := parseIntLoose(get(snisYearCol))
		code, okC := parseIntLoose(Code6(get(snisCodeCol)))
		if !okY || !okC {
			continue
		}
		water, _ := parseIntLoose(get(snisWaterCol))
		sewage, _ := parseIntLoose(get(snisSewageCol))
		out[yearCode{year, strconv.Itoa(code)}] = sanitation{water: water, sewage: sewage}
	}
	return out, nil
}

// readPopulation loads the annual municipal population estimates.
func readPopulation(path string) (map[yearCode]int, error) {
	header, rows, err := readCommaCSV(path)
	if err != nil {
		return nil, err
	}
	_, cols, err := DetectSchema(header, []Schema{popSchema})
	if err != nil {
		return nil, fmt.Errorf("population source: %w", err)
	}

	out := make(map[yearCode]int)
	for _, rec := range rows {
		get := func(name string) string {
			if i := cols[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		year, okY := parseIntLoose(get(popYearCol))
		code, okC := parseIntLoose(Code6(get(popCodeCol)))
		pop, okP := parseIntLoose(get(popValueCol))
		if !okY || !okC || !okP {
			continue
		}
		out[yearCode{year, strconv.Itoa(code)}] = pop
	}
	return out, nil
}

// findAreaFile locates the territorial-area workbook for one year inside
// the configured directory.
func findAreaFile(dir string, year int) (string, bool) {
	for _, pattern := range []string{"*%d*.xlsx", "*%d*.xls"} {
		matches, _ := filepath.Glob(filepath.Join(dir, fmt.Sprintf(pattern, year)))
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], true
		}
	}
	return "", false
}

// readAreas assembles the area source from one workbook per year. Each
// vintage names its code and area columns differently, so both are sniffed
// per file. A missing or unparseable year is skipped with a warning.
func readAreas(dir string, startYear, endYear int, logger *slog.Logger) map[yearCode]float64 {
	out := make(map[yearCode]float64)
	for year := startYear; year <= endYear; year++ {
		path, ok := findAreaFile(dir, year)
		if !ok {
			logger.Warn("no territorial-area workbook for year", "ano", year)
			continue
		}
		rows, err := readSheetRows(path)
		if err != nil || len(rows) == 0 {
			logger.Warn("territorial-area workbook skipped", "arquivo", filepath.Base(path), "error", err)
			continue
		}

		cols := columnIndex(rows[0])
		codeIdx, areaIdx := -1, -1
		for _, c := range areaCodeCols {
			if i, ok := cols[c]; ok {
				codeIdx = i
				break
			}
		}
		for _, c := range areaColsFor(year) {
			if i, ok := cols[c]; ok {
				areaIdx = i
				break
			}
		}
		if codeIdx < 0 || areaIdx < 0 {
			logger.Warn("territorial-area workbook matches no known layout",
				"arquivo", filepath.Base(path), "error", ErrSchemaUnrecognized)
			continue
		}

		n := 0
		for _, rec := range rows[1:] {
			if codeIdx >= len(rec) || areaIdx >= len(rec) {
				continue
			}
			code, okC := parseIntLoose(Code6(rec[codeIdx]))
			area := ParseDecimalComma(rec[areaIdx])
			if !okC || !(area > 0) {
				continue
			}
			out[yearCode{year, strconv.Itoa(code)}] = area
			n++
		}
		fmt.Printf("  area %d: %s, %d municipios\n", year, filepath.Base(path), n)
	}
	return out
}

// BuildSocioFacts left-joins sanitation, population and area on
// (year, 6-digit code), computes density, and resolves the annual time key
// through the January 1st row of the year. Missing metrics are zero-filled;
// a zero or unknown area yields density 0, never a division failure.
func BuildSocioFacts(
	san map[yearCode]sanitation,
	pop map[yearCode]int,
	areas map[yearCode]float64,
	locations []warehouse.LocationEntry,
	timeEntries []warehouse.TimeEntry,
	startYear int,
) (facts []warehouse.SocioFact, unresolved int) {
	locByCode6 := make(map[string]warehouse.LocationEntry, len(locations))
	for _, l := range locations {
		locByCode6[l.Code6()] = l
	}
	jan1 := make(map[int]int) // year -> id_tempo of January 1st
	for _, te := range timeEntries {
		if te.CivilMonth == 1 && te.CivilDay == 1 {
			jan1[te.CivilYear] = te.ID
		}
	}

	keys := make([]yearCode, 0, len(san))
	for k := range san {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].code6 < keys[j].code6
	})

	for _, k := range keys {
		if k.year < startYear {
			continue
		}
		loc, ok := locByCode6[k.code6]
		if !ok {
			continue // not a capital: filtered, not unresolved
		}
		timeID, ok := jan1[k.year]
		if !ok {
			unresolved++
			continue
		}

		s := san[k]
		area := areas[k] // zero when the year's workbook was missing
		population := pop[k]
		density := 0.0
		if area > 0 {
			density = round2(float64(population) / area)
		}
		facts = append(facts, warehouse.SocioFact{
			TimeID:     timeID,
			LocationID: loc.ID,
			Population: population,
			Water:      s.water,
			Sewage:     s.sewage,
			Area:       area,
			Density:    density,
		})
	}
	return facts, unresolved
}

// RunSocioFact builds fato_socioeconomico. The sanitation and population
// sources are required; per-year area workbooks are tolerated missing.
func RunSocioFact(cfg *Config, logger *slog.Logger) error {
	timeEntries, err := warehouse.ReadTimeDimension(cfg.ProcessadosDir)
	if err != nil {
		return fmt.Errorf("%w: dim_tempo: %v", ErrSourceNotFound, err)
	}
	locations, err := warehouse.ReadLocationDimension(cfg.ProcessadosDir)
	if err != nil {
		return fmt.Errorf("%w: dim_local: %v", ErrSourceNotFound, err)
	}

	san, err := readSanitation(cfg.SNISCSV)
	if err != nil {
		return fmt.Errorf("read sanitation source: %w", err)
	}
	pop, err := readPopulation(cfg.PopulacaoCSV)
	if err != nil {
		return fmt.Errorf("read population source: %w", err)
	}
	areas := readAreas(cfg.AreaDir, cfg.AnoInicio, cfg.AnoFim, logger)
	fmt.Printf("fato_socioeconomico: %d linhas SNIS, %d linhas populacao, %d areas\n",
		len(san), len(pop), len(areas))

	facts, unresolved := BuildSocioFacts(san, pop, areas, locations, timeEntries, cfg.AnoInicio)
	if unresolved > 0 {
		logger.Warn("rows dropped with unresolved time key", "count", unresolved)
	}
	if len(facts) == 0 {
		return fmt.Errorf("%w: no socioeconomic rows for the capitals", ErrNoUsableData)
	}

	rows := make([][]string, len(facts))
	for i, f := range facts {
		rows[i] = f.Row()
	}
	path := filepath.Join(cfg.ProcessadosDir, warehouse.SocioTableFile)
	if err := warehouse.WriteTable(path, warehouse.SocioColumns, rows); err != nil {
		return fmt.Errorf("write fato_socioeconomico: %w", err)
	}
	logger.Info("fato_socioeconomico written", "rows", len(facts))
	return nil
}
