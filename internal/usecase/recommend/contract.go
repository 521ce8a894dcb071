package recommend

import (
	"context"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	"github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// Searcher is the vector index contract the engine needs.
// Implementations must be safe for concurrent calls and return matches ordered by
// descending similarity.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, filters filter.Expression) ([]product.Match, error)
}

// Embedder vectorizes the synthesized query.
type Embedder = domain.Embedder
