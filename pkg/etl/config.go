package etl

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config carries every path and threshold the builders need. It is built
// once at process start and passed explicitly; nothing in the pipeline
// mutates it afterwards.
type Config struct {
	ProcessadosDir     string `yaml:"processados_dir"`
	RegistroMunicipios string `yaml:"registro_municipios"`
	ClimaGlob          string `yaml:"clima_glob"`
	DengueGlob         string `yaml:"dengue_glob"`
	SNISCSV            string `yaml:"snis_csv"`
	PopulacaoCSV       string `yaml:"populacao_csv"`
	AreaDir            string `yaml:"area_dir"`
	AnoInicio          int    `yaml:"ano_inicio"`
	AnoFim             int    `yaml:"ano_fim"`
	WarehouseDB        string `yaml:"warehouse_db"`
}

// DefaultConfig returns the layout the repository documents: a dados/
// tree with brutos/ inputs and processados/ outputs, covering 2017-2022.
func DefaultConfig() *Config {
	brutos := filepath.Join("dados", "brutos")
	return &Config{
		ProcessadosDir:     filepath.Join("dados", "processados"),
		RegistroMunicipios: filepath.Join(brutos, "local", "RELATORIO_DTB_BRASIL_MUNICIPIOS.xlsx"),
		ClimaGlob:          filepath.Join(brutos, "meteorologico", "apenas_capitais", "INMET_*.CSV"),
		DengueGlob:         filepath.Join(brutos, "dengue", "DENGBR*.csv"),
		SNISCSV:            filepath.Join(brutos, "socioeconomico", "br_mdr_snis_municipio_agua_esgoto.csv"),
		PopulacaoCSV:       filepath.Join(brutos, "socioeconomico", "populacao_municipios.csv"),
		AreaDir:            filepath.Join(brutos, "socioeconomico", "area"),
		AnoInicio:          2017,
		AnoFim:             2022,
		WarehouseDB:        filepath.Join("dados", "dw.sqlite"),
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error: the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.AnoInicio > cfg.AnoFim {
		return nil, fmt.Errorf("config %s: ano_inicio %d > ano_fim %d", path, cfg.AnoInicio, cfg.AnoFim)
	}
	return cfg, nil
}
