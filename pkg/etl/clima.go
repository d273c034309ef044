package etl

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

// INMET files are Latin-1 with an 8-line "chave:;valor" metadata header;
// the hourly body below uses ';' and decimal commas. Two header vintages
// exist, differing in the date column name and layout.
const (
	stationHeaderLines = 8
	climaPrecipCol     = "PRECIPITAÇÃO TOTAL, HORÁRIO (mm)"
	climaTempCol       = "TEMPERATURA DO AR - BULBO SECO, HORARIA (°C)"
)

type climaVintage struct {
	Schema
	dateCol    string
	dateLayout string
}

// Ordered: newer station files first, older layout as fallback.
var climaVintages = []climaVintage{
	{
		Schema:     Schema{Name: "inmet-novo", Required: []string{"Data", climaPrecipCol, climaTempCol}},
		dateCol:    "Data",
		dateLayout: "2006/01/02",
	},
	{
		Schema:     Schema{Name: "inmet-antigo", Required: []string{"DATA (YYYY-MM-DD)", climaPrecipCol, climaTempCol}},
		dateCol:    "DATA (YYYY-MM-DD)",
		dateLayout: "2006-01-02",
	},
}

type stationMeta struct {
	UF   string
	City string
}

// parseStationHeader extracts state and city from the metadata block. The
// state sits on the second line, the station name on the third, before the
// " - " separator (e.g. "ESTACAO:;BELO HORIZONTE - CERCADINHO").
func parseStationHeader(lines []string) (stationMeta, error) {
	if len(lines) < stationHeaderLines {
		return stationMeta{}, fmt.Errorf("%w: header has %d lines, want %d", ErrMetadataParse, len(lines), stationHeaderLines)
	}
	value := func(line string) string {
		_, v, ok := strings.Cut(line, ":;")
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}
	uf := value(lines[1])
	station := value(lines[2])
	city, _, _ := strings.Cut(station, " - ")
	city = strings.TrimSpace(city)
	if uf == "" || city == "" {
		return stationMeta{}, fmt.Errorf("%w: empty state or station name", ErrMetadataParse)
	}
	return stationMeta{UF: uf, City: city}, nil
}

// hourlyReading is one cleaned body row.
type hourlyReading struct {
	date   time.Time
	temp   float64
	precip float64
}

// readStationFile parses one INMET file into its metadata and hourly body.
// Numeric fields keep NaN for missing values; gap filling happens later.
func readStationFile(path string) (stationMeta, []hourlyReading, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stationMeta{}, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return stationMeta{}, nil, err
	}
	defer f.Close()

	// Whole file is Latin-1, metadata and body alike.
	decoded := bufio.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))

	header := make([]string, 0, stationHeaderLines)
	for i := 0; i < stationHeaderLines; i++ {
		line, err := decoded.ReadString('\n')
		if err != nil && err != io.EOF {
			return stationMeta{}, nil, fmt.Errorf("%w: %v", ErrMetadataParse, err)
		}
		header = append(header, strings.TrimRight(line, "\r\n"))
		if err == io.EOF {
			break
		}
	}
	meta, err := parseStationHeader(header)
	if err != nil {
		return stationMeta{}, nil, err
	}

	r := csv.NewReader(decoded)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	cols, err := r.Read()
	if err != nil {
		return stationMeta{}, nil, fmt.Errorf("%w: no body header: %v", ErrSchemaUnrecognized, err)
	}
	var vintage *climaVintage
	for i := range climaVintages {
		if climaVintages[i].matches(columnIndex(cols)) {
			vintage = &climaVintages[i]
			break
		}
	}
	if vintage == nil {
		return stationMeta{}, nil, fmt.Errorf("%w: body header matches no INMET vintage", ErrSchemaUnrecognized)
	}
	idx := columnIndex(cols)
	dateIdx, precipIdx, tempIdx := idx[vintage.dateCol], idx[climaPrecipCol], idx[climaTempCol]

	var readings []hourlyReading
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if dateIdx >= len(rec) || precipIdx >= len(rec) || tempIdx >= len(rec) {
			continue
		}
		d, err := time.Parse(vintage.dateLayout, strings.TrimSpace(rec[dateIdx]))
		if err != nil {
			continue
		}
		readings = append(readings, hourlyReading{
			date:   d,
			temp:   ParseDecimalComma(rec[tempIdx]),
			precip: ParseDecimalComma(rec[precipIdx]),
		})
	}
	return meta, readings, nil
}

// fillGaps interpolates missing temperature and precipitation values over
// the chronological sequence of readings, then forward/back fills whatever
// remains at the boundaries.
func fillGaps(readings []hourlyReading) {
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].date.Before(readings[j].date) })

	temps := make([]float64, len(readings))
	precips := make([]float64, len(readings))
	for i, r := range readings {
		temps[i] = r.temp
		precips[i] = r.precip
	}
	Interpolate(temps)
	Interpolate(precips)
	for i := range readings {
		readings[i].temp = temps[i]
		readings[i].precip = precips[i]
	}
}

// dailyClimate is the hourly->daily aggregate: mean temperature, summed
// precipitation.
type dailyClimate struct {
	date     time.Time
	meanTemp float64
	precip   float64
}

func aggregateDaily(readings []hourlyReading) []dailyClimate {
	type acc struct {
		tempSum, precipSum float64
		n                  int
	}
	byDay := make(map[string]*acc)
	var order []string
	for _, r := range readings {
		if math.IsNaN(r.temp) || math.IsNaN(r.precip) {
			continue // series with no known value at all
		}
		key := r.date.Format(warehouse.DateLayout)
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
			order = append(order, key)
		}
		a.tempSum += r.temp
		a.precipSum += r.precip
		a.n++
	}
	sort.Strings(order)

	days := make([]dailyClimate, 0, len(order))
	for _, key := range order {
		a := byDay[key]
		d, _ := time.Parse(warehouse.DateLayout, key)
		days = append(days, dailyClimate{
			date:     d,
			meanTemp: a.tempSum / float64(a.n),
			precip:   a.precipSum,
		})
	}
	return days
}

// aggregateWeekly joins daily aggregates to the time dimension and groups
// them by epidemiological year/week. The group's time key is the key of the
// last calendar day present in that week, not the first.
func aggregateWeekly(days []dailyClimate, locationID int, timeIdx map[string]warehouse.TimeEntry) []warehouse.ClimateFact {
	type week struct{ year, num int }
	type acc struct {
		tempSum   float64
		precipSum float64
		n         int
		lastTime  int
	}
	byWeek := make(map[week]*acc)
	for _, day := range days {
		te, ok := timeIdx[day.date.Format(warehouse.DateLayout)]
		if !ok {
			continue // only days present in dim_tempo contribute
		}
		k := week{te.EpiYear, te.EpiWeek}
		a, ok := byWeek[k]
		if !ok {
			a = &acc{}
			byWeek[k] = a
		}
		a.tempSum += day.meanTemp
		a.precipSum += day.precip
		a.n++
		a.lastTime = te.ID // days arrive in chronological order
	}

	keys := make([]week, 0, len(byWeek))
	for k := range byWeek {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].num < keys[j].num
	})

	facts := make([]warehouse.ClimateFact, 0, len(keys))
	for _, k := range keys {
		a := byWeek[k]
		facts = append(facts, warehouse.ClimateFact{
			TimeID:     a.lastTime,
			LocationID: locationID,
			MeanTemp:   round2(a.tempSum / float64(a.n)),
			PrecipSum:  a.precipSum,
		})
	}
	return facts
}

// processStationFile runs the whole per-file pipeline. A station whose city
// cannot be matched against dim_local yields (nil, false, nil): skipped,
// not fatal, no fabricated key.
func processStationFile(path string, locations []warehouse.LocationEntry, timeIdx map[string]warehouse.TimeEntry, logger *slog.Logger) ([]warehouse.ClimateFact, bool, error) {
	meta, readings, err := readStationFile(path)
	if err != nil {
		return nil, false, err
	}
	if len(readings) == 0 {
		return nil, false, fmt.Errorf("%w: no hourly rows", ErrNoUsableData)
	}

	locationID := 0
	cityKey := NormalizeName(meta.City)
	for _, l := range locations {
		if NormalizeName(l.Name) == cityKey {
			locationID = l.ID
			break
		}
	}
	if locationID == 0 {
		logger.Warn("station city not in dim_local, skipping file",
			"arquivo", filepath.Base(path), "cidade", meta.City, "uf", meta.UF)
		return nil, false, nil
	}

	fillGaps(readings)
	days := aggregateDaily(readings)
	facts := aggregateWeekly(days, locationID, timeIdx)
	fmt.Printf("  %s: %s/%s, %d leituras, %d dias, %d semanas\n",
		filepath.Base(path), meta.City, meta.UF, len(readings), len(days), len(facts))
	return facts, true, nil
}

// RunClimateFact builds fato_clima from every INMET file matching the
// configured glob. Per-file failures are logged and skipped; the builder
// fails only when no file succeeds.
func RunClimateFact(cfg *Config, logger *slog.Logger) error {
	timeEntries, err := warehouse.ReadTimeDimension(cfg.ProcessadosDir)
	if err != nil {
		return fmt.Errorf("%w: dim_tempo: %v", ErrSourceNotFound, err)
	}
	locations, err := warehouse.ReadLocationDimension(cfg.ProcessadosDir)
	if err != nil {
		return fmt.Errorf("%w: dim_local: %v", ErrSourceNotFound, err)
	}
	timeIdx := warehouse.TimeIndex(timeEntries)

	files, err := filepath.Glob(cfg.ClimaGlob)
	if err != nil {
		return fmt.Errorf("glob %s: %w", cfg.ClimaGlob, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no weather files match %s", ErrSourceNotFound, cfg.ClimaGlob)
	}
	sort.Strings(files)
	fmt.Printf("fato_clima: %d arquivos INMET encontrados\n", len(files))

	var all [][]string
	succeeded := 0
	for _, file := range files {
		facts, ok, err := processStationFile(file, locations, timeIdx, logger)
		if err != nil {
			logger.Warn("station file skipped", "arquivo", filepath.Base(file), "error", err)
			continue
		}
		if !ok {
			continue
		}
		succeeded++
		for _, f := range facts {
			all = append(all, f.Row())
		}
	}
	if succeeded == 0 {
		return fmt.Errorf("%w: none of %d weather files could be processed", ErrNoUsableData, len(files))
	}

	path := filepath.Join(cfg.ProcessadosDir, warehouse.ClimateTableFile)
	if err := warehouse.WriteTable(path, warehouse.ClimateColumns, all); err != nil {
		return fmt.Errorf("write fato_clima: %w", err)
	}
	logger.Info("fato_clima written", "rows", len(all), "arquivos", succeeded)
	return nil
}
