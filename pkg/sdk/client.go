package cosmerec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/cosmerec/internal/db/redis"
	"github.com/kailas-cloud/cosmerec/internal/domain"
	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
	catalogrepo "github.com/kailas-cloud/cosmerec/internal/repository/catalog"
	"github.com/kailas-cloud/cosmerec/internal/repository/memory"
	productrepo "github.com/kailas-cloud/cosmerec/internal/repository/product"
	qdrantrepo "github.com/kailas-cloud/cosmerec/internal/repository/qdrant"
	cataloguc "github.com/kailas-cloud/cosmerec/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/cosmerec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/cosmerec/internal/usecase/recommend"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type recommendUseCase interface {
	Recommend(ctx context.Context, d diagnosis.Diagnosis, p preference.Preference, topK int) (domrec.Result, error)
	Query(d diagnosis.Diagnosis, p preference.Preference) string
}

type catalogUseCase interface {
	Rebuild(ctx context.Context, records []domcat.Record) (cataloguc.Report, error)
}

type index interface {
	Recreate(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, products []domprod.Product) error
	Search(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]domprod.Match, error)
	Count(ctx context.Context) (int, error)
}

// Client is the cosmerec SDK entry point.
type Client struct {
	closers    []func()
	engine     recommendUseCase
	catalogSvc catalogUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New connects the configured index and wires the engine.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{scoring: DefaultScoring()}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("cosmerec: no index backend (use WithValkey, WithRedis, WithQdrant or WithMemory)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("cosmerec: embedder required (use WithEmbedder)")
	}
	scoring := domrec.Scoring(cfg.scoring)
	if err := scoring.Validate(); err != nil {
		return nil, fmt.Errorf("cosmerec: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	idx, pinger, closers, err := createIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embed := &embedderAdapter{inner: cfg.embedder}
	logger := zap.NewNop()

	// Pass nil interface (not typed nil pointer!) when there is nothing to ping.
	var db healthuc.Pinger
	if pinger != nil {
		db = pinger
	}

	return &Client{
		closers: closers,
		engine:  recommenduc.New(idx, embed, scoring, logger),
		catalogSvc: cataloguc.New(idx, embed, cataloguc.Config{
			BatchSize: cfg.batchSize,
			Workers:   cfg.workers,
		}, logger),
		healthSvc: healthuc.New(idx, db, embed),
		obs:       obs,
	}, nil
}

func createIndex(ctx context.Context, cfg *clientConfig) (index, healthuc.Pinger, []func(), error) {
	switch cfg.driver {
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, nil, fmt.Errorf("cosmerec: %s address required", cfg.driver)
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cosmerec: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, nil, fmt.Errorf("cosmerec: database not ready: %w", err)
		}
		repo := productrepo.New(s, productrepo.HNSW{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct})
		return repo, s, []func(){s.Close}, nil

	case "qdrant":
		host, port := cfg.qdrantHost, cfg.qdrantPort
		if host == "" {
			host = "localhost"
		}
		if port <= 0 {
			port = 6334
		}
		c, err := qdrantrepo.Dial(qdrantrepo.Config{
			Host:   host,
			Port:   port,
			APIKey: cfg.qdrantAPIKey,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cosmerec: %w", err)
		}
		closeFn := func() { _ = c.Close() }
		return qdrantrepo.New(c, cfg.qdrantCollection), qdrantrepo.NewPinger(c), []func(){closeFn}, nil

	case "memory":
		return memory.New(), nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("cosmerec: unknown driver %q", cfg.driver)
	}
}

// Close releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Recommend returns up to TopK products for the request, best first.
// An index with no matching products gives an empty Result and a nil error.
func (c *Client) Recommend(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() {
		c.obs.observe("recommend", start, usage.TotalTokens, err, "products", len(res.Products))
	}()

	d, p, topK, err := parseRequest(req)
	if err != nil {
		return Result{}, err
	}

	r, err := c.engine.Recommend(ctx, d, p, topK)
	if err != nil {
		return Result{}, fmt.Errorf("recommend: %w", err)
	}
	return toResult(r), nil
}

// Query returns the search text Recommend would embed for req.
func (c *Client) Query(req Request) (string, error) {
	d, p, _, err := parseRequest(req)
	if err != nil {
		return "", err
	}
	return c.engine.Query(d, p), nil
}

// IndexFile loads a corpus (.csv, .parquet or sqlite) and replaces the index with it.
// table names the sqlite table; empty means "products".
func (c *Client) IndexFile(ctx context.Context, path, table string) (IndexReport, error) {
	records, err := catalogrepo.Load(ctx, path, table)
	if err != nil {
		c.obs.observe("index", time.Now(), 0, err, "path", path)
		return IndexReport{}, fmt.Errorf("load corpus: %w", err)
	}
	return c.index(ctx, records, "path", path)
}

// IndexProducts replaces the index with products. Products without an ID get
// one from their position.
func (c *Client) IndexProducts(ctx context.Context, products []Product, embeddingTexts []string) (IndexReport, error) {
	if len(products) != len(embeddingTexts) {
		return IndexReport{}, fmt.Errorf("%w: %d products but %d embedding texts",
			ErrInvalidRequest, len(products), len(embeddingTexts))
	}
	records := make([]domcat.Record, len(products))
	for i, p := range products {
		records[i] = domcat.Record{
			Row:           i,
			ID:            p.ID,
			Name:          p.Name,
			Brand:         p.Brand,
			Price:         fmt.Sprint(p.Price),
			ProductType:   p.ProductType,
			SkinType:      p.SkinType,
			ConditionList: p.Conditions,
			Description:   p.Description,
			EmbeddingText: embeddingTexts[i],
		}
	}
	return c.index(ctx, records)
}

func (c *Client) index(ctx context.Context, records []domcat.Record, attrs ...any) (rep IndexReport, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("index", start, rep.EmbeddingTokens, err, append(attrs, "indexed", rep.Indexed)...)
	}()

	report, err := c.catalogSvc.Rebuild(ctx, records)
	rep = toIndexReport(report)
	if err != nil {
		return rep, fmt.Errorf("index: %w", err)
	}
	return rep, nil
}

func parseRequest(req Request) (diagnosis.Diagnosis, preference.Preference, int, error) {
	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if req.PriceCeiling < 0 {
		return diagnosis.Diagnosis{}, preference.Preference{}, 0,
			fmt.Errorf("%w: price ceiling must not be negative, got %d", ErrInvalidRequest, req.PriceCeiling)
	}

	d := diagnosis.New(req.Condition, req.Description)
	if req.DiagnosisReply != "" {
		d = diagnosis.ParseReply(req.DiagnosisReply)
	}
	return d, preference.New(req.SkinType, req.PriceCeiling), topK, nil
}

// embedderAdapter wraps the public Embedder to satisfy the internal embedder contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts) //nolint:wrapcheck // fallback wraps per item
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	if len(r.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrEmbeddingProviderError, len(r.Embeddings), len(texts))
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it exposes one.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}
