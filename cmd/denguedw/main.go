package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/dengue-dw/pkg/etl"
	"github.com/hazyhaar/dengue-dw/pkg/warehouse"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dimensoes":
		runStage(os.Args[2:], "dimensoes", stageDimensoes)
	case "dengue":
		runStage(os.Args[2:], "dengue", etl.RunDiseaseFact)
	case "clima":
		runStage(os.Args[2:], "clima", etl.RunClimateFact)
	case "socio":
		runStage(os.Args[2:], "socio", etl.RunSocioFact)
	case "load":
		runStage(os.Args[2:], "load", stageLoad)
	case "pipeline":
		cmdPipeline(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: denguedw <comando> [-config config.yaml]

Comandos:
  dimensoes   Gera dim_tempo e dim_local
  dengue      Gera fato_casos_dengue (requer dimensoes)
  clima       Gera fato_clima (requer dimensoes)
  socio       Gera fato_socioeconomico (requer dimensoes)
  load        Carrega os CSVs processados no data warehouse
  pipeline    Executa todas as etapas em ordem, parando na primeira falha
`)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// runStage parses the shared -config flag and executes one builder,
// exiting non-zero on failure.
func runStage(args []string, name string, stage func(*etl.Config, *slog.Logger) error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := newLogger()
	cfg, err := etl.LoadConfig(*cfgPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	if err := stage(cfg, logger); err != nil {
		logger.Error("stage failed", "etapa", name, "error", err)
		os.Exit(1)
	}
}

// stageDimensoes materializes both dimensions; every fact builder depends
// on them.
func stageDimensoes(cfg *etl.Config, logger *slog.Logger) error {
	if err := etl.RunTimeDimension(cfg, logger); err != nil {
		return err
	}
	return etl.RunLocationDimension(cfg, logger)
}

// stageLoad bulk-inserts the five processed tables into the SQLite
// warehouse inside one transaction.
func stageLoad(cfg *etl.Config, logger *slog.Logger) error {
	store, err := warehouse.OpenStore(cfg.WarehouseDB)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := warehouse.LoadAll(store, cfg.ProcessadosDir)
	if err != nil {
		return err
	}
	logger.Info("warehouse loaded", "rows", n, "db", cfg.WarehouseDB)
	return nil
}
