package etl

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName prepares a municipality or station name for exact matching:
// NFD decomposition, combining marks stripped, uppercased, surrounding
// whitespace trimmed (e.g. "São Luís" -> "SAO LUIS"). Station names from
// INMET headers and registry names from IBGE only agree under this form.
func NormalizeName(s string) string {
	result, _, _ := transform.String(stripAccents, strings.ToUpper(s))
	return strings.TrimSpace(result)
}
