package etl

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimalComma reads a Brazilian decimal-comma numeral ("25,4") as a
// float64. A bare leading comma (",8") is a known INMET artifact and is
// read as "0,8". Empty and malformed values come back as NaN so that the
// gap-filling pass can repair them.
func ParseDecimalComma(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	if strings.HasPrefix(s, ",") || strings.HasPrefix(s, "-,") {
		s = strings.Replace(s, ",", "0,", 1)
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// CleanCode strips the spreadsheet float artifact from a numeric code cell:
// "3106200.0" -> "3106200". Whitespace is trimmed.
func CleanCode(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}

// Code6 drops the trailing check digit of a 7-digit municipality code.
// Codes already at 6 digits or shorter pass through unchanged.
func Code6(code string) string {
	code = CleanCode(code)
	if len(code) == 7 {
		return code[:6]
	}
	return code
}

// parseIntLoose reads an integer that sources sometimes serialize as a
// float ("2017.0") or with padding. Returns ok=false when unparseable.
func parseIntLoose(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

// round2 rounds to two decimal places, the precision of every derived
// metric in the fact tables.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
