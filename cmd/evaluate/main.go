package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/evaluation"
	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/storage/sqlite"
	"github.com/drug-interaction/backend/pkg/config"
	appLogger "github.com/drug-interaction/backend/pkg/logger"
)

func main() {
	datasetPath := flag.String("dataset", "data/eval_dataset.json", "path to the labelled dataset")
	configPath := flag.String("config", "", "optional config file")
	seedPath := flag.String("seed", "", "seed the catalog from this file before evaluating")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, "console", "stdout"); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	ctx := context.Background()

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	if *seedPath != "" {
		f, err := os.Open(*seedPath)
		if err != nil {
			appLogger.Fatal("Failed to open seed file", zap.Error(err))
		}
		err = db.SeedFromJSON(ctx, f)
		f.Close()
		if err != nil {
			appLogger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	indexes := matching.NewIndexHolder()
	if _, err := indexes.Rebuild(ctx, db); err != nil {
		appLogger.Fatal("Failed to build catalog index", zap.Error(err))
	}

	m := cfg.Matching
	mc := matching.DefaultConfig()
	mc.FuzzyThreshold = m.FuzzyThreshold
	mc.VectorThreshold = m.VectorThreshold
	mc.ConfidenceFloor = m.ConfidenceFloor
	mc.SemanticTimeout = time.Duration(m.SemanticTimeoutMs) * time.Millisecond
	resolver := matching.NewResolver(indexes, mc, matching.DefaultStrategies(mc)...)

	f, err := os.Open(*datasetPath)
	if err != nil {
		appLogger.Fatal("Failed to open dataset", zap.Error(err))
	}
	defer f.Close()

	dataset, err := evaluation.LoadDataset(f)
	if err != nil {
		appLogger.Fatal("Failed to load dataset", zap.Error(err))
	}

	report, err := evaluation.NewEvaluator(resolver).Run(ctx, dataset)
	if err != nil {
		appLogger.Fatal("Evaluation failed", zap.Error(err))
	}

	fmt.Print(report.Render())
}
