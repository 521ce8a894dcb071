package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "cosmetics"

const upsertChunk = 256

// client is the subset of *qdrant.Client the repository needs.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
}

// Config holds connection parameters for Qdrant's gRPC endpoint.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Repo is a product index backed by one Qdrant collection.
type Repo struct {
	client     client
	collection string
}

// Dial connects to Qdrant. The returned client must be closed by the caller.
func Dial(cfg Config) (*qdrant.Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return c, nil
}

// New creates a repository over an existing client.
func New(c client, collection string) *Repo {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Repo{client: c, collection: collection}
}

// Recreate deletes the collection if present and creates it empty with cosine
// distance and an integer index on price.
func (r *Repo) Recreate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidRequest, dimension)
	}

	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %s: %w", domain.ErrIndexUnavailable, r.collection, err)
	}
	if exists {
		if err := r.client.DeleteCollection(ctx, r.collection); err != nil {
			return fmt.Errorf("delete collection %s: %w", r.collection, err)
		}
	}

	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", r.collection, err)
	}

	_, err = r.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		FieldName:      keyPrice,
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("index %s on %s: %w", keyPrice, r.collection, err)
	}
	return nil
}

// Upsert writes products, which must carry vectors.
func (r *Repo) Upsert(ctx context.Context, products []domprod.Product) error {
	for start := 0; start < len(products); start += upsertChunk {
		end := min(start+upsertChunk, len(products))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			p := &products[i]
			if len(p.Vector()) == 0 {
				return fmt.Errorf("product %s: %w: missing vector", p.ID(), domain.ErrInvalidRequest)
			}
			payload, err := buildPayload(p)
			if err != nil {
				return fmt.Errorf("encode product %s: %w", p.ID(), err)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(pointID(p.ID())),
				Vectors: qdrant.NewVectors(p.Vector()...),
				Payload: payload,
			})
		}

		_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: r.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upsert points [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// Search returns up to limit nearest products that satisfy filters, best first.
func (r *Repo) Search(
	ctx context.Context, vector []float32, limit int, filters filter.Expression,
) ([]domprod.Match, error) {
	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         buildFilter(filters),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrIndexUnavailable, r.collection, err)
	}

	matches := make([]domprod.Match, 0, len(points))
	for _, pt := range points {
		matches = append(matches, domprod.Match{
			Product: parsePayload(pt.GetId().GetUuid(), pt.GetPayload()),
			Score:   float64(pt.GetScore()),
		})
	}
	return matches, nil
}

// Count returns the exact number of points; a missing collection counts as zero.
func (r *Repo) Count(ctx context.Context) (int, error) {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if !exists {
		return 0, nil
	}
	n, err := r.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: r.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrIndexUnavailable, r.collection, err)
	}
	return int(n), nil
}
