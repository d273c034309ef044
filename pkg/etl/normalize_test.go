package etl

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"São Paulo", "SAO PAULO"},
		{"SÃO PAULO", "SAO PAULO"},
		{"sao paulo", "SAO PAULO"},
		{"Belém", "BELEM"},
		{"Brasília", "BRASILIA"},
		{"Goiânia", "GOIANIA"},
		{"São Luís", "SAO LUIS"},
		{"  Macapá  ", "MACAPA"},
		{"Vitória", "VITORIA"},
		{"", ""},
		{"Natal", "NATAL"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Station headers and the registry must agree under normalization even when
// one side carries accents and the other does not.
func TestNormalizeName_StationRegistryAgreement(t *testing.T) {
	pairs := [][2]string{
		{"SAO PAULO", "São Paulo"},
		{"BELO HORIZONTE", "Belo Horizonte"},
		{"JOAO PESSOA", "João Pessoa"},
		{"CUIABA", "Cuiabá"},
	}
	for _, p := range pairs {
		if NormalizeName(p[0]) != NormalizeName(p[1]) {
			t.Errorf("NormalizeName(%q) != NormalizeName(%q)", p[0], p[1])
		}
	}
}
