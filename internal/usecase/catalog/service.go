// Package catalog rebuilds the vector index from a product corpus.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
	"github.com/kailas-cloud/cosmerec/internal/domain/product"
	"github.com/kailas-cloud/cosmerec/internal/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultBatchSize = 64
	DefaultWorkers   = 4
)

// Config tunes a rebuild.
type Config struct {
	BatchSize int // texts per embedding call and products per upsert
	Workers   int // concurrent embedding calls
}

// Report summarises a rebuild.
type Report struct {
	Loaded                 int
	Indexed                int
	Rejected               int
	ConditionParseFailures int
	EmbeddingTokens        int
	Dimension              int
	Duration               time.Duration
}

// Service converts corpus records to products, embeds them and replaces the index.
type Service struct {
	index  Index
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a catalog service.
func New(index Index, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, embed: embed, cfg: cfg, logger: logger}
}

// Rebuild drops the index and repopulates it from records. Any embedding or index
// error aborts the rebuild. Searches running meanwhile may see a partial index.
func (s *Service) Rebuild(ctx context.Context, records []domcat.Record) (Report, error) {
	start := time.Now()
	report := Report{Loaded: len(records)}

	products := s.convert(records, &report)
	if len(products) == 0 {
		return report, fmt.Errorf("%w: no valid products among %d records", domain.ErrInvalidRequest, len(records))
	}

	vectors, tokens, err := s.embedAll(ctx, products)
	if err != nil {
		return report, err
	}
	report.EmbeddingTokens = tokens

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return report, fmt.Errorf("%w: product %q has dimension %d, expected %d",
				domain.ErrEmbeddingProviderError, products[i].ID(), len(v), dim)
		}
		products[i] = products[i].WithVector(v)
	}
	report.Dimension = dim

	s.logger.Warn("Recreating index; searches see partial results until the rebuild completes",
		zap.Int("products", len(products)),
		zap.Int("dimension", dim),
	)
	if err := s.index.Recreate(ctx, dim); err != nil {
		return report, fmt.Errorf("recreate index: %w", err)
	}

	for off := 0; off < len(products); off += s.cfg.BatchSize {
		end := min(off+s.cfg.BatchSize, len(products))
		if err := s.index.Upsert(ctx, products[off:end]); err != nil {
			return report, fmt.Errorf("upsert products %d-%d: %w", off, end, err)
		}
		report.Indexed = end
	}

	report.Duration = time.Since(start)
	metrics.CatalogProductsIndexed.Set(float64(report.Indexed))

	s.logger.Info("Catalog rebuilt",
		zap.Int("loaded", report.Loaded),
		zap.Int("indexed", report.Indexed),
		zap.Int("rejected", report.Rejected),
		zap.Int("condition_parse_failures", report.ConditionParseFailures),
		zap.Int("embedding_tokens", report.EmbeddingTokens),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// convert validates records. Invalid rows are logged and counted, never fatal.
func (s *Service) convert(records []domcat.Record, report *Report) []product.Product {
	products := make([]product.Product, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			id = "p-" + strconv.Itoa(rec.Row)
		}
		if seen[id] {
			s.reject(report, rec, id, errors.New("duplicate id"))
			continue
		}

		text := strings.TrimSpace(rec.EmbeddingText)
		if text == "" {
			s.reject(report, rec, id, errors.New("empty embedding text"))
			continue
		}

		conds, err := product.ParseConditions(rawConditions(rec))
		if err != nil {
			report.ConditionParseFailures++
			s.logger.Warn("Unparseable associated conditions, indexing with none",
				zap.String("id", id),
				zap.Int("row", rec.Row),
				zap.Error(err),
			)
		}

		p, err := product.New(id, product.Attributes{
			Name:          strings.TrimSpace(rec.Name),
			Brand:         strings.TrimSpace(rec.Brand),
			Price:         parsePrice(rec.Price),
			ProductType:   strings.TrimSpace(rec.ProductType),
			SkinType:      strings.TrimSpace(rec.SkinType),
			Conditions:    conds,
			Description:   strings.TrimSpace(rec.Description),
			EmbeddingText: text,
		})
		if err != nil {
			s.reject(report, rec, id, err)
			continue
		}

		seen[id] = true
		products = append(products, p)
	}
	return products
}

func (s *Service) reject(report *Report, rec domcat.Record, id string, err error) {
	report.Rejected++
	s.logger.Warn("Skipping corpus row",
		zap.Int("row", rec.Row),
		zap.String("id", id),
		zap.Error(err),
	)
}

// embedAll embeds chunks concurrently; vectors keep product order.
func (s *Service) embedAll(ctx context.Context, products []product.Product) ([][]float32, int, error) {
	vectors := make([][]float32, len(products))
	chunks := (len(products) + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	tokens := make([]int, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for c := range chunks {
		off := c * s.cfg.BatchSize
		end := min(off+s.cfg.BatchSize, len(products))
		g.Go(func() error {
			texts := make([]string, 0, end-off)
			for i := off; i < end; i++ {
				texts = append(texts, products[i].EmbeddingText())
			}

			res, err := domain.EmbedBatch(gctx, s.embed, texts)
			if err != nil {
				return fmt.Errorf("embed products %d-%d: %w", off, end, err)
			}
			if len(res.Embeddings) != len(texts) {
				return fmt.Errorf("%w: got %d vectors for %d texts",
					domain.ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
			}
			copy(vectors[off:end], res.Embeddings)
			tokens[c] = res.TotalTokens
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err //nolint:wrapcheck // already wrapped per chunk
	}

	total := 0
	for _, t := range tokens {
		total += t
	}
	return vectors, total, nil
}

func rawConditions(rec domcat.Record) product.RawConditions {
	if rec.ConditionList != nil {
		return product.ConditionsFromList(rec.ConditionList)
	}
	return product.ConditionsFromText(rec.Conditions)
}

// parsePrice reads an integer or decimal won amount. Blank, unparseable and
// negative values give 0.
func parsePrice(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
