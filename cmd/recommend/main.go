// Command recommend prints cosmetic recommendations for one diagnosis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kailas-cloud/cosmerec/internal/app"
	"github.com/kailas-cloud/cosmerec/internal/config"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	logpkg "github.com/kailas-cloud/cosmerec/internal/logger"
	chiTransport "github.com/kailas-cloud/cosmerec/internal/transport/chi"
)

var (
	configPath  = flag.String("config", "", "Config file (default: config/$ENV.yaml)")
	condition   = flag.String("condition", "", "Diagnosed condition, e.g. 건선")
	description = flag.String("description", "", "Diagnosis description")
	reply       = flag.String("reply", "", "Raw diagnosis reply; overrides -condition and -description")
	skin        = flag.String("skin", "", "Skin type, e.g. \"건성, 민감성\"")
	price       = flag.Int("price", 0, "Price ceiling in won (0 = no limit)")
	top         = flag.Int("top", 0, "Number of products (0: recommend.default_top_k, negative: none)")
	asJSON      = flag.Bool("json", false, "Print the HTTP API response body instead of text")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "recommend:", err)
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

	topK := *top
	if topK == 0 {
		topK = cfg.Recommend.DefaultTopK
	}
	if topK > cfg.Recommend.MaxTopK {
		return fmt.Errorf("-top must be at most %d", cfg.Recommend.MaxTopK)
	}
	if *price < 0 {
		return fmt.Errorf("-price must not be negative")
	}

	d := diagnosis.New(*condition, *description)
	if *reply != "" {
		d = diagnosis.ParseReply(*reply)
	}
	p := preference.New(*skin, *price)

	// Keep the terminal for results; only warnings and errors are logged.
	logger, err := logpkg.NewLogger(env, "warn")
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

	if err := a.EnsureIndexed(ctx); err != nil {
		return err
	}

	res, err := a.Engine.Recommend(ctx, d, p, topK)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(chiTransport.NewRecommendationResponse(res)) //nolint:wrapcheck // stdout
	}
	render(os.Stdout, res)
	return nil
}
