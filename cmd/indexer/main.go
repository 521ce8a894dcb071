// Command indexer rebuilds the product index from a corpus file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/app"
	"github.com/kailas-cloud/cosmerec/internal/config"
	logpkg "github.com/kailas-cloud/cosmerec/internal/logger"
)

var (
	configPath = flag.String("config", "", "Config file (default: config/$ENV.yaml)")
	input      = flag.String("input", "", "Corpus file: .csv, .parquet or .db (default: catalog.path)")
	table      = flag.String("table", "", "Table to read from a sqlite corpus (default: catalog.table)")
	batchSize  = flag.Int("batch", 0, "Texts per embedding call (default: catalog.batch_size)")
	workers    = flag.Int("workers", 0, "Concurrent embedding calls (default: catalog.workers)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "indexer:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return err
	}

	if *input != "" {
		cfg.Catalog.Path = *input
	}
	if *table != "" {
		cfg.Catalog.Table = *table
	}
	if *batchSize > 0 {
		cfg.Catalog.BatchSize = *batchSize
	}
	if *workers > 0 {
		cfg.Catalog.Workers = *workers
	}
	if cfg.Catalog.Path == "" {
		return fmt.Errorf("no corpus: pass -input or set catalog.path")
	}
	if cfg.Database.Driver == config.DriverMemory {
		return fmt.Errorf("the memory driver does not persist; use redis, valkey or qdrant")
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("Indexing catalog",
		zap.String("path", cfg.Catalog.Path),
		zap.String("driver", cfg.Database.Driver),
		zap.Int("batch_size", cfg.Catalog.BatchSize),
		zap.Int("workers", cfg.Catalog.Workers),
	)

	report, err := a.Rebuild(ctx, cfg.Catalog.Path, cfg.Catalog.Table)
	if err != nil {
		return err
	}

	fmt.Printf("loaded %d, indexed %d, rejected %d, malformed conditions %d\n",
		report.Loaded, report.Indexed, report.Rejected, report.ConditionParseFailures)
	fmt.Printf("dimension %d, %d embedding tokens, %s\n",
		report.Dimension, report.EmbeddingTokens, report.Duration.Round(time.Millisecond))
	return nil
}
