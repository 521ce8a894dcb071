package catalog

import (
	"context"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// Index is the write side of a vector index.
type Index interface {
	Recreate(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, products []product.Product) error
}

// Embedder vectorizes product embedding texts. Batch support is used when present.
type Embedder = domain.Embedder
