package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

// SINAN categorical codes. Missing values are filled with an explicit
// "ignored" sentinel per field, never dropped.
const (
	classiFinIgnored   = 9
	evolucaoIgnored    = 9
	hospitalizIgnored  = 9
	tpautoctoUndefined = 3
	sexoIgnored        = "I"

	evolucaoObito = 2
	hospitalizSim = 1
	tpautoctoSim  = 1

	// AgeUnknown marks records whose age could not be derived from either
	// birth-date encoding. They still count toward case, death and sex
	// totals, but toward no age bracket.
	AgeUnknown = -1
)

// classiFinDiscarded are the final classifications that do NOT count as a
// case: discarded, inconclusive, ignored.
var classiFinDiscarded = map[int]bool{2: true, 8: true, 9: true}

// The two known DENGBR layouts. Newer extracts carry only the birth year;
// older ones carry the full birth date plus the raw age field.
var dengueSchemas = []Schema{
	{Name: "sinan-novo", Required: []string{
		"ID_AGRAVO", "CLASSI_FIN", "ID_MN_RESI", "SG_UF", "TPAUTOCTO",
		"ANO_NASC", "CS_SEXO", "HOSPITALIZ", "EVOLUCAO", "DT_NOTIFIC", "SEM_NOT",
	}},
	{Name: "sinan-antigo", Required: []string{
		"ID_AGRAVO", "CLASSI_FIN", "ID_MN_RESI", "SG_UF", "TPAUTOCTO",
		"NU_IDADE_N", "DT_NASC", "CS_SEXO", "HOSPITALIZ", "EVOLUCAO", "DT_NOTIFIC", "SEM_NOT",
	}},
}

// dengueRecord is one notification after sentinel filling.
type dengueRecord struct {
	resiCode   string // 6-digit residence municipality code
	classiFin  int
	evolucao   int
	hospitaliz int
	tpautocto  int
	sexo       string
	notifDate  time.Time // zero when unparseable
	birthDate  time.Time // zero unless the old layout carried a full date
	birthYear  int       // 0 when unknown
}

// parseCode reads a SINAN categorical that sources serialize as a float
// ("2.0"); empty or malformed values take the given sentinel.
func parseCode(s string, sentinel int) int {
	v, ok := parseIntLoose(s)
	if !ok {
		return sentinel
	}
	return v
}

// readDengueFile streams one yearly extract, keeping only rows whose
// residence code is in the capital filter set. Filtering during read keeps
// the national extract from being held in memory.
func readDengueFile(path string, capitalCodes map[string]bool) ([]dengueRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ','
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: no header: %v", ErrSchemaUnrecognized, err)
	}
	schema, cols, err := DetectSchema(header, dengueSchemas)
	if err != nil {
		return nil, err
	}
	oldLayout := schema.Name == "sinan-antigo"

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var records []dengueRecord
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		code := field(rec, "ID_MN_RESI")
		if !capitalCodes[code] {
			continue
		}

		d := dengueRecord{
			resiCode:   code,
			classiFin:  parseCode(field(rec, "CLASSI_FIN"), classiFinIgnored),
			evolucao:   parseCode(field(rec, "EVOLUCAO"), evolucaoIgnored),
			hospitaliz: parseCode(field(rec, "HOSPITALIZ"), hospitalizIgnored),
			tpautocto:  parseCode(field(rec, "TPAUTOCTO"), tpautoctoUndefined),
		}
		if s := field(rec, "CS_SEXO"); s != "" {
			d.sexo = s
		} else {
			d.sexo = sexoIgnored
		}
		if t, err := time.Parse(warehouse.DateLayout, field(rec, "DT_NOTIFIC")); err == nil {
			d.notifDate = t
		}
		if oldLayout {
			// DT_NASC holds either a full date or, in some vintages, a
			// bare year.
			nasc := field(rec, "DT_NASC")
			if t, err := time.Parse(warehouse.DateLayout, nasc); err == nil {
				d.birthDate = t
				d.birthYear = t.Year()
			} else if y, ok := parseIntLoose(nasc); ok && y > 1800 {
				d.birthYear = y
			}
		} else if y, ok := parseIntLoose(field(rec, "ANO_NASC")); ok && y > 1800 {
			d.birthYear = y
		}
		records = append(records, d)
	}
	return records, nil
}

// ageAtNotification derives the patient's age in whole years. A full birth
// date gives a day-accurate age; a bare birth year falls back to the year
// difference; anything else is AgeUnknown.
func ageAtNotification(d dengueRecord) int {
	if d.notifDate.IsZero() {
		return AgeUnknown
	}
	if !d.birthDate.IsZero() {
		age := d.notifDate.Year() - d.birthDate.Year()
		if d.notifDate.Month() < d.birthDate.Month() ||
			(d.notifDate.Month() == d.birthDate.Month() && d.notifDate.Day() < d.birthDate.Day()) {
			age--
		}
		if age < 0 {
			return AgeUnknown
		}
		return age
	}
	if d.birthYear > 0 {
		age := d.notifDate.Year() - d.birthYear
		if age < 0 {
			return AgeUnknown
		}
		return age
	}
	return AgeUnknown
}

// dengueFlags derives the 0/1 indicators the fact table sums. The four age
// brackets are mutually exclusive and exclude unknown ages.
func dengueFlags(d dengueRecord) warehouse.DiseaseFact {
	var f warehouse.DiseaseFact
	if !classiFinDiscarded[d.classiFin] {
		f.Cases = 1
	}
	if d.evolucao == evolucaoObito {
		f.Deaths = 1
	}
	if d.hospitaliz == hospitalizSim {
		f.Hospitalizations = 1
	}
	if d.tpautocto == tpautoctoSim {
		f.Autochthonous = 1
	}
	switch d.sexo {
	case "M":
		f.Male = 1
	case "F":
		f.Female = 1
	}
	switch age := ageAtNotification(d); {
	case age == AgeUnknown:
	case age <= 12:
		f.Children = 1
	case age <= 17:
		f.Adolescents = 1
	case age <= 59:
		f.Adults = 1
	default:
		f.Elderly = 1
	}
	return f
}

// AggregateDisease resolves keys and sums flags per municipality and
// epidemiological week. The group's time key is the key of the
// chronologically last contributing record. Rows without a resolvable
// location or time key are dropped; the count is returned for reporting.
func AggregateDisease(records []dengueRecord, locations []warehouse.LocationEntry, timeIdx map[string]warehouse.TimeEntry) (facts []warehouse.DiseaseFact, unresolved int) {
	locByCode6 := make(map[string]int, len(locations))
	for _, l := range locations {
		locByCode6[l.Code6()] = l.ID
	}

	type group struct{ loc, year, week int }
	type acc struct {
		sum      warehouse.DiseaseFact
		lastDate time.Time
		lastTime int
	}
	byGroup := make(map[group]*acc)

	for _, d := range records {
		locID, okLoc := locByCode6[d.resiCode]
		var te warehouse.TimeEntry
		okTime := false
		if !d.notifDate.IsZero() {
			te, okTime = timeIdx[d.notifDate.Format(warehouse.DateLayout)]
		}
		if !okLoc || !okTime {
			unresolved++
			continue
		}

		k := group{locID, te.EpiYear, te.EpiWeek}
		a, ok := byGroup[k]
		if !ok {
			a = &acc{}
			byGroup[k] = a
		}
		f := dengueFlags(d)
		a.sum.Cases += f.Cases
		a.sum.Deaths += f.Deaths
		a.sum.Hospitalizations += f.Hospitalizations
		a.sum.Autochthonous += f.Autochthonous
		a.sum.Male += f.Male
		a.sum.Female += f.Female
		a.sum.Children += f.Children
		a.sum.Adolescents += f.Adolescents
		a.sum.Adults += f.Adults
		a.sum.Elderly += f.Elderly
		if !d.notifDate.Before(a.lastDate) {
			a.lastDate = d.notifDate
			a.lastTime = te.ID
		}
	}

	keys := make([]group, 0, len(byGroup))
	for k := range byGroup {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.loc != b.loc {
			return a.loc < b.loc
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.week < b.week
	})

	for _, k := range keys {
		a := byGroup[k]
		f := a.sum
		f.TimeID = a.lastTime
		f.LocationID = k.loc
		facts = append(facts, f)
	}
	return facts, unresolved
}

// RunDiseaseFact builds fato_casos_dengue from every yearly extract
// matching the configured glob. A file matching neither known layout is
// skipped; the builder fails only when no file yields a row.
func RunDiseaseFact(cfg *Config, logger *slog.Logger) error {
	timeEntries, err := warehouse.ReadTimeDimension(cfg.ProcessadosDir)
	if err != nil {
		return fmt.Errorf("%w: dim_tempo: %v", ErrSourceNotFound, err)
	}
	locations, err := warehouse.ReadLocationDimension(cfg.ProcessadosDir)
	if err != nil {
		return fmt.Errorf("%w: dim_local: %v", ErrSourceNotFound, err)
	}
	timeIdx := warehouse.TimeIndex(timeEntries)

	capitalCodes := make(map[string]bool, len(locations))
	for _, l := range locations {
		capitalCodes[l.Code6()] = true
	}

	files, err := filepath.Glob(cfg.DengueGlob)
	if err != nil {
		return fmt.Errorf("glob %s: %w", cfg.DengueGlob, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no notification extracts match %s", ErrSourceNotFound, cfg.DengueGlob)
	}
	sort.Strings(files)
	fmt.Printf("fato_casos_dengue: %d arquivos DENGBR encontrados\n", len(files))

	var records []dengueRecord
	for i, file := range files {
		rs, err := readDengueFile(file, capitalCodes)
		if err != nil {
			logger.Warn("notification file skipped", "arquivo", filepath.Base(file), "error", err)
			continue
		}
		fmt.Printf("  [%d/%d] %s: %d registros das capitais\n", i+1, len(files), filepath.Base(file), len(rs))
		records = append(records, rs...)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no notification rows for the capitals", ErrNoUsableData)
	}

	facts, unresolved := AggregateDisease(records, locations, timeIdx)
	if unresolved > 0 {
		logger.Warn("records dropped with unresolved keys", "count", unresolved)
	}

	rows := make([][]string, len(facts))
	for i, f := range facts {
		rows[i] = f.Row()
	}
	path := filepath.Join(cfg.ProcessadosDir, warehouse.DiseaseTableFile)
	if err := warehouse.WriteTable(path, warehouse.DiseaseColumns, rows); err != nil {
		return fmt.Errorf("write fato_casos_dengue: %w", err)
	}
	logger.Info("fato_casos_dengue written", "rows", len(facts), "registros", len(records))
	return nil
}
