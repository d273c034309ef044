package etl

import (
	"errors"
	"testing"
)

func TestDetectSchema(t *testing.T) {
	schemas := []Schema{
		{Name: "novo", Required: []string{"A", "B", "NOVO"}},
		{Name: "antigo", Required: []string{"A", "B", "ANTIGO"}},
	}

	tests := []struct {
		name   string
		header []string
		want   string
	}{
		{"matches first", []string{"A", "B", "NOVO", "EXTRA"}, "novo"},
		{"falls back to second", []string{"A", "B", "ANTIGO"}, "antigo"},
		{"first wins when both match", []string{"A", "B", "NOVO", "ANTIGO"}, "novo"},
		{"whitespace trimmed", []string{" A ", "B", "NOVO"}, "novo"},
	}
	for _, tt := range tests {
		s, cols, err := DetectSchema(tt.header, schemas)
		if err != nil {
			t.Errorf("%s: DetectSchema: %v", tt.name, err)
			continue
		}
		if s.Name != tt.want {
			t.Errorf("%s: schema = %q, want %q", tt.name, s.Name, tt.want)
		}
		if _, ok := cols["A"]; !ok {
			t.Errorf("%s: column index missing A", tt.name)
		}
	}
}

func TestDetectSchema_Unrecognized(t *testing.T) {
	schemas := []Schema{{Name: "only", Required: []string{"X"}}}
	_, _, err := DetectSchema([]string{"A", "B"}, schemas)
	if !errors.Is(err, ErrSchemaUnrecognized) {
		t.Errorf("err = %v, want ErrSchemaUnrecognized", err)
	}
}
