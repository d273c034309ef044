package warehouse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteTable writes header and rows as a semicolon-delimited CSV at path,
// with no index column. The file is written to a temporary sibling and
// renamed into place, so a failed run never leaves a partial table behind.
func WriteTable(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ReadTable reads a semicolon-delimited CSV, returning its header and rows.
func ReadTable(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row of %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// ReadTimeDimension loads dim_tempo from a processed directory.
func ReadTimeDimension(dir string) ([]TimeEntry, error) {
	path := filepath.Join(dir, TimeTableFile)
	_, rows, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("load dim_tempo: %w", err)
	}
	entries := make([]TimeEntry, 0, len(rows))
	for _, rec := range rows {
		e, err := parseTimeEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("dim_tempo %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadLocationDimension loads dim_local from a processed directory.
func ReadLocationDimension(dir string) ([]LocationEntry, error) {
	path := filepath.Join(dir, LocationTableFile)
	_, rows, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("load dim_local: %w", err)
	}
	entries := make([]LocationEntry, 0, len(rows))
	for _, rec := range rows {
		e, err := parseLocationEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("dim_local %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// TimeIndex maps data_completa (in DateLayout form) to its dimension entry.
func TimeIndex(entries []TimeEntry) map[string]TimeEntry {
	idx := make(map[string]TimeEntry, len(entries))
	for _, e := range entries {
		idx[e.Date.Format(DateLayout)] = e
	}
	return idx
}
