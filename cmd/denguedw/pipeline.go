package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hazyhaar/dengue-dw/pkg/etl"
)

// cmdPipeline runs every stage in dependency order: dimensions first, the
// three independent fact builders next, the warehouse load last. The first
// failure halts the run with a non-zero exit; there is no partial resume.
func cmdPipeline(args []string) {
	fs := flag.NewFlagSet("pipeline", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	skipLoad := fs.Bool("skip-load", false, "stop after the ETL stages, do not load the warehouse")
	fs.Parse(args)

	logger := newLogger()
	cfg, err := etl.LoadConfig(*cfgPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	stages := []struct {
		name string
		run  func(*etl.Config, *slog.Logger) error
	}{
		{"dimensoes", stageDimensoes},
		{"dengue", etl.RunDiseaseFact},
		{"clima", etl.RunClimateFact},
		{"socio", etl.RunSocioFact},
		{"load", stageLoad},
	}
	if *skipLoad {
		stages = stages[:len(stages)-1]
	}

	start := time.Now()
	for i, s := range stages {
		fmt.Printf("[%d/%d] etapa %s\n", i+1, len(stages), s.name)
		stageStart := time.Now()
		if err := s.run(cfg, logger); err != nil {
			logger.Error("pipeline interrompido", "etapa", s.name, "error", err)
			os.Exit(1)
		}
		fmt.Printf("[%d/%d] etapa %s concluida em %.2fs\n", i+1, len(stages), s.name, time.Since(stageStart).Seconds())
	}
	fmt.Printf("pipeline concluido em %.2fs\n", time.Since(start).Seconds())
}
