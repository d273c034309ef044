// Package etl builds the dengue warehouse star schema from raw surveillance
// sources: the IBGE municipality registry, INMET hourly weather station
// files, SINAN yearly notification extracts, and SNIS/IBGE socioeconomic
// tables. Dimension builders run first; each fact builder consumes the
// materialized dimensions and writes exactly one interchange table.
package etl

import "errors"

// Sentinel errors of the pipeline. File-level problems (unrecognized
// schema, unparsable station header) are absorbed with a logged warning
// inside multi-file builders; they become fatal only when no usable file
// remains. Missing required sources are always fatal.
var (
	// ErrSourceNotFound marks a required input file or directory that is absent.
	ErrSourceNotFound = errors.New("source not found")

	// ErrSourceFormat marks a present source whose expected columns are missing.
	ErrSourceFormat = errors.New("source format invalid")

	// ErrSchemaUnrecognized marks a file whose columns match no known layout.
	ErrSchemaUnrecognized = errors.New("schema unrecognized")

	// ErrMetadataParse marks a weather file whose 8-line header cannot be read.
	ErrMetadataParse = errors.New("metadata parse error")

	// ErrNoUsableData marks a builder left with zero usable rows or files.
	ErrNoUsableData = errors.New("no usable data")
)
