package etl

import (
	"fmt"
	"strings"
)

// Schema is one known column layout of a delimited source. Sources drift
// across vintages (SINAN changed its birth field, INMET renamed its date
// column), so each reader carries an ordered list of descriptors and takes
// the first whose required columns are all present.
type Schema struct {
	Name     string
	Required []string
}

// columnIndex maps trimmed header names to their positions.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

// matches reports whether every required column appears in the header index.
func (s Schema) matches(cols map[string]int) bool {
	for _, c := range s.Required {
		if _, ok := cols[c]; !ok {
			return false
		}
	}
	return true
}

// DetectSchema tries each descriptor in order against the header and
// returns the first match. The header index is returned alongside so
// callers can resolve column positions without re-scanning.
func DetectSchema(header []string, schemas []Schema) (Schema, map[string]int, error) {
	cols := columnIndex(header)
	for _, s := range schemas {
		if s.matches(cols) {
			return s, cols, nil
		}
	}
	return Schema{}, nil, fmt.Errorf("%w: header matches none of %d known layouts", ErrSchemaUnrecognized, len(schemas))
}
