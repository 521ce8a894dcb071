package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	domprod "github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// Repo is an in-process product index with exact cosine search.
// Safe for concurrent use.
type Repo struct {
	mu        sync.RWMutex
	dimension int
	products  []domprod.Product
	byID      map[string]int
}

// New creates an empty index.
func New() *Repo {
	return &Repo{byID: make(map[string]int)}
}

// Recreate discards all products and fixes the vector dimension.
func (r *Repo) Recreate(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidRequest, dimension)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dimension = dimension
	r.products = nil
	r.byID = make(map[string]int)
	return nil
}

// Upsert adds or replaces products by id. The first write fixes the dimension
// when Recreate was never called.
func (r *Repo) Upsert(_ context.Context, products []domprod.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range products {
		p := products[i]
		dim := len(p.Vector())
		if dim == 0 {
			return fmt.Errorf("product %s: %w: missing vector", p.ID(), domain.ErrInvalidRequest)
		}
		if r.dimension == 0 {
			r.dimension = dim
		}
		if dim != r.dimension {
			return fmt.Errorf("product %s: %w: dimension %d, index has %d",
				p.ID(), domain.ErrInvalidRequest, dim, r.dimension)
		}

		if at, ok := r.byID[p.ID()]; ok {
			r.products[at] = p
			continue
		}
		r.byID[p.ID()] = len(r.products)
		r.products = append(r.products, p)
	}
	return nil
}

// Search scans every product, keeps those passing filters and returns the
// limit most similar. Equal scores keep insertion order.
func (r *Repo) Search(
	_ context.Context, vector []float32, limit int, filters filter.Expression,
) ([]domprod.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domprod.Match, 0, min(limit, len(r.products)))
	if limit <= 0 {
		return matches, nil
	}
	if r.dimension != 0 && len(vector) != r.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index has %d",
			domain.ErrInvalidRequest, len(vector), r.dimension)
	}

	for i := range r.products {
		p := &r.products[i]
		if !filters.Matches(map[string]float64{filter.FieldPrice: float64(p.Price())}) {
			continue
		}
		matches = append(matches, domprod.Match{Product: *p, Score: cosine(vector, p.Vector())})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count returns the number of stored products.
func (r *Repo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
