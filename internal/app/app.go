// Package app is the composition root shared by the cosmerec binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/config"
	dbRedis "github.com/kailas-cloud/cosmerec/internal/db/redis"
	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
	"github.com/kailas-cloud/cosmerec/internal/metrics"
	catalogrepo "github.com/kailas-cloud/cosmerec/internal/repository/catalog"
	"github.com/kailas-cloud/cosmerec/internal/repository/embcache"
	"github.com/kailas-cloud/cosmerec/internal/repository/memory"
	productrepo "github.com/kailas-cloud/cosmerec/internal/repository/product"
	qdrantrepo "github.com/kailas-cloud/cosmerec/internal/repository/qdrant"
	ollamaEmb "github.com/kailas-cloud/cosmerec/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/cosmerec/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/cosmerec/internal/usecase/catalog"
	embeddinguc "github.com/kailas-cloud/cosmerec/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/cosmerec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/cosmerec/internal/usecase/recommend"
)

// Index is the full vector index contract: rebuilds write, the engine reads.
type Index interface {
	Recreate(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, products []domprod.Product) error
	Search(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]domprod.Match, error)
	Count(ctx context.Context) (int, error)
}

// App holds the wired services. Close releases backend connections.
type App struct {
	Config  config.Config
	Index   Index
	Engine  *recommenduc.Service
	Catalog *cataloguc.Service
	Health  *healthuc.Service

	logger  *zap.Logger
	closers []func()
}

// cacheKV is what a store-backed embedding cache needs from the database.
type cacheKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// backend is the index plus what sits behind it.
type backend struct {
	index   Index
	pinger  healthuc.Pinger // nil for the in-process index
	kv      cacheKV         // nil unless redis/valkey
	closers []func()
}

// Build connects the configured index, assembles the embedder chains and creates the services.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scoring := domrec.Scoring{
		ConditionBonus: cfg.Recommend.ConditionBonus,
		SkinTypeBonus:  cfg.Recommend.SkinTypeBonus,
		RecallFactor:   cfg.Recommend.RecallFactor,
	}
	if err := scoring.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Index: be.index, logger: logger, closers: be.closers}

	// Embedding and recommendation metrics are registered here, not in init().
	metrics.Register()

	cache, err := newCacheStore(cfg.Embedding.Cache, be.kv)
	if err != nil {
		a.Close()
		return nil, err
	}

	docEmbedder, err := buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, cache, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	queryEmbedder, err := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, cache, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("type", cfg.ProviderType()),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("cache", cfg.Embedding.Cache.Kind),
	)

	a.Engine = recommenduc.New(be.index, queryEmbedder, scoring, logger)
	a.Catalog = cataloguc.New(be.index, docEmbedder, cataloguc.Config{
		BatchSize: cfg.Catalog.BatchSize,
		Workers:   cfg.Catalog.Workers,
	}, logger)

	// Pass nil interface (not typed nil pointer!) when there is no database to ping.
	var pinger healthuc.Pinger
	if be.pinger != nil {
		pinger = be.pinger
	}
	a.Health = healthuc.New(be.index, pinger, newEmbeddingHealthChecker(queryEmbedder))

	return a, nil
}

// Rebuild loads the corpus at path and replaces the index with it.
func (a *App) Rebuild(ctx context.Context, path, table string) (cataloguc.Report, error) {
	records, err := catalogrepo.Load(ctx, path, table)
	if err != nil {
		return cataloguc.Report{}, fmt.Errorf("load catalog: %w", err)
	}
	report, err := a.Catalog.Rebuild(ctx, records)
	if err != nil {
		return report, fmt.Errorf("rebuild index: %w", err)
	}
	return report, nil
}

// EnsureIndexed rebuilds from the configured corpus when asked to, or when the
// index is empty and a corpus is configured.
func (a *App) EnsureIndexed(ctx context.Context) error {
	cat := a.Config.Catalog
	if !cat.RebuildOnStart {
		if cat.Path == "" {
			return nil
		}
		n, err := a.Index.Count(ctx)
		if err != nil || n > 0 {
			return nil //nolint:nilerr // a failing count is reported by /health, not fatal here
		}
	}

	report, err := a.Rebuild(ctx, cat.Path, cat.Table)
	if err != nil {
		return err
	}
	a.logger.Info("Catalog indexed at startup",
		zap.String("path", cat.Path),
		zap.Int("indexed", report.Indexed),
		zap.Int("rejected", report.Rejected),
	)
	return nil
}

// Close releases backend connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return backend{}, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return backend{}, fmt.Errorf("%w: %s not ready: %w", domain.ErrIndexUnavailable, cfg.Database.Driver, err)
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
		repo := productrepo.New(store, productrepo.HNSW{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		return backend{index: repo, pinger: store, kv: store, closers: []func(){store.Close}}, nil

	case config.DriverQdrant:
		client, err := qdrantrepo.Dial(qdrantrepo.Config{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
		})
		if err != nil {
			return backend{}, err //nolint:wrapcheck // Dial already names the endpoint
		}
		logger.Info("Connected to qdrant",
			zap.String("host", cfg.Qdrant.Host),
			zap.Int("port", cfg.Qdrant.Port),
			zap.String("collection", cfg.Qdrant.Collection),
		)
		return backend{
			index:   qdrantrepo.New(client, cfg.Qdrant.Collection),
			pinger:  qdrantrepo.NewPinger(client),
			closers: []func(){func() { _ = client.Close() }},
		}, nil

	case config.DriverMemory:
		logger.Info("Using in-process index")
		return backend{index: memory.New()}, nil

	default:
		return backend{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func newCacheStore(cfg config.CacheConfig, kv cacheKV) (embcache.Store, error) {
	ttl := time.Duration(cfg.TTLSec) * time.Second
	switch cfg.Kind {
	case config.CacheNone:
		return nil, nil
	case config.CacheLRU:
		return embcache.NewLRUStore(cfg.Size, ttl), nil
	case config.CacheStore:
		if kv == nil {
			return nil, errors.New("embedding cache kind \"store\" needs a redis or valkey database")
		}
		return embcache.NewKVStore(kv, ttl), nil
	default:
		return nil, fmt.Errorf("unknown embedding cache kind %q", cfg.Kind)
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	instruction string,
	cache embcache.Store,
	logger *zap.Logger,
) (domain.Embedder, error) {
	provName := cfg.Embedding.Provider
	provCfg := cfg.ActiveProvider()
	model := cfg.Embedding.Model

	// Base provider (with transport metrics built-in)
	var base domain.Embedder
	switch cfg.ProviderType() {
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   provName,
			Logger:     logger,
		})
	case config.ProviderOllama:
		emb, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			BaseURL: provCfg.BaseURL,
			Model:   model,
			Timeout: time.Duration(provCfg.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}
		base = emb
	default:
		return nil, fmt.Errorf("unknown embedding provider type %q", cfg.ProviderType())
	}

	// Cached
	embedder := base
	if cache != nil {
		namespace := fmt.Sprintf("%s:%s:%d", provName, model, cfg.Embedding.Dimensions)
		embedder = embcache.New(base, cache, namespace, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (chunking + logging)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, provName, model, cfg.Embedding.MaxBatchSize, logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), nil
	}
	return embedder, nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
