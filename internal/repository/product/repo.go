package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cosmerec/internal/db"
	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// upsertChunk bounds the number of HSETs pipelined in one round-trip.
const upsertChunk = 256

var (
	keyPrefix = domain.KeyPrefix + "product:"
	indexName = domain.KeyPrefix + "products:idx"
)

// store is the consumer interface for the product index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSW holds graph parameters for the vector field; zero values use server defaults.
type HNSW struct {
	M           int
	EFConstruct int
}

// Repo stores products as hashes under one FT index on Redis or Valkey.
type Repo struct {
	store store
	hnsw  HNSW
}

// New creates a product repository.
func New(s store, hnsw HNSW) *Repo {
	return &Repo{store: s, hnsw: hnsw}
}

// Recreate drops the index together with its documents and creates it empty.
func (r *Repo) Recreate(ctx context.Context, dimension int) error {
	if err := r.store.DropIndex(ctx, indexName, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", indexName, err)
	}

	def, err := db.NewIndex(indexName).
		Prefix(keyPrefix).
		Numeric(fieldPrice).
		Tag(fieldProductType, "|").
		VectorHNSW(fieldVector, dimension, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", indexName, err)
	}
	return nil
}

// Upsert writes products, which must carry vectors, in pipelined chunks.
func (r *Repo) Upsert(ctx context.Context, products []domprod.Product) error {
	for start := 0; start < len(products); start += upsertChunk {
		end := min(start+upsertChunk, len(products))

		items := make([]db.HashSetItem, 0, end-start)
		for i := start; i < end; i++ {
			p := &products[i]
			if len(p.Vector()) == 0 {
				return fmt.Errorf("product %s: %w: missing vector", p.ID(), domain.ErrInvalidRequest)
			}
			fields, err := buildHashFields(p)
			if err != nil {
				return fmt.Errorf("encode product %s: %w", p.ID(), err)
			}
			items = append(items, db.HashSetItem{Key: keyPrefix + p.ID(), Fields: fields})
		}

		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("write products [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// Search returns up to limit products nearest to vector that satisfy filters,
// best first.
func (r *Repo) Search(
	ctx context.Context, vector []float32, limit int, filters filter.Expression,
) ([]domprod.Match, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		VectorField:  fieldVector,
		Filters:      filters,
		Vector:       vector,
		K:            limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %w", domain.ErrIndexUnavailable, err)
	}

	matches := make([]domprod.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, keyPrefix)
		matches = append(matches, domprod.Match{
			Product: parseHashFields(id, e.Fields),
			Score:   e.Score,
		})
	}
	return matches, nil
}

// Count returns the number of indexed products; a missing index counts as zero.
func (r *Repo) Count(ctx context.Context) (int, error) {
	ok, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}
