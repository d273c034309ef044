// Package warehouse defines the star-schema tables exchanged between the
// ETL builders and the load stage: two dimensions (tempo, local) and three
// facts (clima, casos de dengue, socioeconômico), all persisted as
// semicolon-delimited CSV files in the processed-data directory.
package warehouse

import (
	"fmt"
	"strconv"
	"time"
)

// File names of the interchange tables inside the processed directory.
const (
	TimeTableFile     = "dim_tempo.csv"
	LocationTableFile = "dim_local.csv"
	ClimateTableFile  = "fato_clima.csv"
	DiseaseTableFile  = "fato_casos_dengue.csv"
	SocioTableFile    = "fato_socioeconomico.csv"
)

// DateLayout is the wire format of data_completa.
const DateLayout = "2006-01-02"

// TimeEntry is one calendar day of the time dimension.
type TimeEntry struct {
	ID         int
	Date       time.Time
	CivilYear  int
	CivilMonth int
	CivilDay   int
	EpiYear    int
	EpiWeek    int
}

// LocationEntry is one of the 27 state capitals.
type LocationEntry struct {
	ID   int
	UF   string
	Code string // 7-digit IBGE code, last digit is a check digit
	Name string
}

// Code6 returns the municipality code without its trailing check digit.
// Most notification and sanitation sources carry only the 6-digit form.
func (l LocationEntry) Code6() string {
	if len(l.Code) < 2 {
		return l.Code
	}
	return l.Code[:len(l.Code)-1]
}

// ClimateFact is aggregated weather for one capital and epidemiological week.
type ClimateFact struct {
	TimeID     int
	LocationID int
	MeanTemp   float64 // 2-decimal rounding
	PrecipSum  float64
}

// DiseaseFact is aggregated dengue notifications for one capital and
// epidemiological week. Every count is a sum of per-record 0/1 flags.
type DiseaseFact struct {
	TimeID           int
	LocationID       int
	Cases            int
	Deaths           int
	Hospitalizations int
	Autochthonous    int
	Male             int
	Female           int
	Children         int // 0-12
	Adolescents      int // 13-17
	Adults           int // 18-59
	Elderly          int // 60+
}

// SocioFact is sanitation, population and density for one capital and year.
// The time key points at January 1st of the year.
type SocioFact struct {
	TimeID     int
	LocationID int
	Population int
	Water      int
	Sewage     int
	Area       float64
	Density    float64 // 0 when area is unknown or zero
}

// Column sets of the interchange files, in output order.
var (
	TimeColumns = []string{
		"id_tempo", "data_completa", "ano_civil", "mes_civil", "dia_civil",
		"ano_epidemiologico", "semana_epidemiologica",
	}
	LocationColumns = []string{"id_local", "uf", "cod_municipio", "nome_municipio"}
	ClimateColumns  = []string{"id_tempo", "id_local", "temperatura_media", "precipitacao_soma"}
	DiseaseColumns  = []string{
		"id_tempo", "id_local", "num_casos", "num_obitos", "num_hospitalizacao",
		"num_autoctones", "num_masculino", "num_feminino", "num_criancas",
		"num_adolescentes", "num_adultos", "num_idosos",
	}
	SocioColumns = []string{
		"id_tempo", "id_local", "num_populacao", "num_agua_tratada",
		"num_esgoto", "area_territorio", "densidade_demografica",
	}
)

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Row renders the entry in TimeColumns order.
func (e TimeEntry) Row() []string {
	return []string{
		itoa(e.ID), e.Date.Format(DateLayout), itoa(e.CivilYear),
		itoa(e.CivilMonth), itoa(e.CivilDay), itoa(e.EpiYear), itoa(e.EpiWeek),
	}
}

// Row renders the entry in LocationColumns order.
func (l LocationEntry) Row() []string {
	return []string{itoa(l.ID), l.UF, l.Code, l.Name}
}

// Row renders the fact in ClimateColumns order.
func (f ClimateFact) Row() []string {
	return []string{itoa(f.TimeID), itoa(f.LocationID), ftoa(f.MeanTemp), ftoa(f.PrecipSum)}
}

// Row renders the fact in DiseaseColumns order.
func (f DiseaseFact) Row() []string {
	return []string{
		itoa(f.TimeID), itoa(f.LocationID), itoa(f.Cases), itoa(f.Deaths),
		itoa(f.Hospitalizations), itoa(f.Autochthonous), itoa(f.Male),
		itoa(f.Female), itoa(f.Children), itoa(f.Adolescents), itoa(f.Adults),
		itoa(f.Elderly),
	}
}

// Row renders the fact in SocioColumns order.
func (f SocioFact) Row() []string {
	return []string{
		itoa(f.TimeID), itoa(f.LocationID), itoa(f.Population), itoa(f.Water),
		itoa(f.Sewage), ftoa(f.Area), ftoa(f.Density),
	}
}

func parseTimeEntry(rec []string) (TimeEntry, error) {
	if len(rec) != len(TimeColumns) {
		return TimeEntry{}, fmt.Errorf("dim_tempo row has %d fields, want %d", len(rec), len(TimeColumns))
	}
	var e TimeEntry
	var err error
	if e.ID, err = strconv.Atoi(rec[0]); err != nil {
		return TimeEntry{}, fmt.Errorf("id_tempo %q: %w", rec[0], err)
	}
	if e.Date, err = time.Parse(DateLayout, rec[1]); err != nil {
		return TimeEntry{}, fmt.Errorf("data_completa %q: %w", rec[1], err)
	}
	ints := []*int{&e.CivilYear, &e.CivilMonth, &e.CivilDay, &e.EpiYear, &e.EpiWeek}
	for i, p := range ints {
		if *p, err = strconv.Atoi(rec[i+2]); err != nil {
			return TimeEntry{}, fmt.Errorf("%s %q: %w", TimeColumns[i+2], rec[i+2], err)
		}
	}
	return e, nil
}

func parseLocationEntry(rec []string) (LocationEntry, error) {
	if len(rec) != len(LocationColumns) {
		return LocationEntry{}, fmt.Errorf("dim_local row has %d fields, want %d", len(rec), len(LocationColumns))
	}
	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return LocationEntry{}, fmt.Errorf("id_local %q: %w", rec[0], err)
	}
	return LocationEntry{ID: id, UF: rec[1], Code: rec[2], Name: rec[3]}, nil
}
