package warehouse

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the relational warehouse the processed tables are bulk-loaded
// into. The ETL builders never read from it; they communicate only through
// the CSV interchange files.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite warehouse at path and ensures the
// dimension and fact tables exist.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open warehouse db: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS dim_tempo (
	id_tempo              INTEGER PRIMARY KEY,
	data_completa         TEXT NOT NULL,
	ano_civil             INTEGER NOT NULL,
	mes_civil             INTEGER NOT NULL,
	dia_civil             INTEGER NOT NULL,
	ano_epidemiologico    INTEGER NOT NULL,
	semana_epidemiologica INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS dim_local (
	id_local       INTEGER PRIMARY KEY,
	uf             TEXT NOT NULL,
	cod_municipio  TEXT NOT NULL,
	nome_municipio TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fato_clima (
	id_tempo          INTEGER NOT NULL REFERENCES dim_tempo(id_tempo),
	id_local          INTEGER NOT NULL REFERENCES dim_local(id_local),
	temperatura_media REAL,
	precipitacao_soma REAL
);
CREATE TABLE IF NOT EXISTS fato_casos_dengue (
	id_tempo           INTEGER NOT NULL REFERENCES dim_tempo(id_tempo),
	id_local           INTEGER NOT NULL REFERENCES dim_local(id_local),
	num_casos          INTEGER NOT NULL,
	num_obitos         INTEGER NOT NULL,
	num_hospitalizacao INTEGER NOT NULL,
	num_autoctones     INTEGER NOT NULL,
	num_masculino      INTEGER NOT NULL,
	num_feminino       INTEGER NOT NULL,
	num_criancas       INTEGER NOT NULL,
	num_adolescentes   INTEGER NOT NULL,
	num_adultos        INTEGER NOT NULL,
	num_idosos         INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS fato_socioeconomico (
	id_tempo              INTEGER NOT NULL REFERENCES dim_tempo(id_tempo),
	id_local              INTEGER NOT NULL REFERENCES dim_local(id_local),
	num_populacao         INTEGER NOT NULL,
	num_agua_tratada      INTEGER NOT NULL,
	num_esgoto            INTEGER NOT NULL,
	area_territorio       REAL NOT NULL,
	densidade_demografica REAL NOT NULL
);`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create warehouse tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// loadTasks pairs each interchange file with its target table, dimensions
// first so that fact foreign keys resolve.
var loadTasks = []struct {
	file  string
	table string
}{
	{TimeTableFile, "dim_tempo"},
	{LocationTableFile, "dim_local"},
	{DiseaseTableFile, "fato_casos_dengue"},
	{ClimateTableFile, "fato_clima"},
	{SocioTableFile, "fato_socioeconomico"},
}

// LoadAll reads the five processed CSV files from dir and inserts every row
// inside a single transaction: either all tables load, or none do.
func LoadAll(s *Store, dir string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	for _, task := range loadTasks {
		n, err := loadTable(tx, filepath.Join(dir, task.file), task.table)
		if err != nil {
			return 0, fmt.Errorf("load %s: %w", task.table, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load transaction: %w", err)
	}
	return total, nil
}

func loadTable(tx *sql.Tx, path, table string) (int, error) {
	header, rows, err := ReadTable(path)
	if err != nil {
		return 0, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(header, ", "), placeholders)
	stmt, err := tx.Prepare(q)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range rows {
		if len(rec) != len(header) {
			return 0, fmt.Errorf("%s: row has %d fields, want %d", path, len(rec), len(header))
		}
		args := make([]any, len(rec))
		for i, v := range rec {
			args[i] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("insert row: %w", err)
		}
	}
	return len(rows), nil
}

// CountRows returns the number of rows in a warehouse table.
func (s *Store) CountRows(table string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
