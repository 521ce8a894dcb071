package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
	"github.com/kailas-cloud/cosmerec/internal/domain/product"
)

type mockIndex struct {
	recreateFn func(ctx context.Context, dim int) error
	upsertFn   func(ctx context.Context, products []product.Product) error

	dim      int
	upserted []product.Product
	batches  int
}

func (m *mockIndex) Recreate(ctx context.Context, dim int) error {
	m.dim = dim
	if m.recreateFn != nil {
		return m.recreateFn(ctx, dim)
	}
	return nil
}

func (m *mockIndex) Upsert(ctx context.Context, products []product.Product) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(ctx, products); err != nil {
			return err
		}
	}
	m.batches++
	m.upserted = append(m.upserted, products...)
	return nil
}

// lenEmbedder maps each text to [len(text), 1] and charges one token per text.
type lenEmbedder struct {
	mu      sync.Mutex
	batches int
	err     error
}

func (e *lenEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}, TotalTokens: 1}, e.err
}

func (e *lenEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	return domain.BatchFallback(ctx, e, texts)
}

func rec(row int, id, name, price, conds, text string) domcat.Record {
	return domcat.Record{Row: row, ID: id, Name: name, Brand: "B", Price: price, Conditions: conds, EmbeddingText: text}
}

func TestRebuild_IndexesValidProducts(t *testing.T) {
	idx := &mockIndex{}
	emb := &lenEmbedder{}
	svc := New(idx, emb, Config{BatchSize: 2, Workers: 2}, nil)

	records := []domcat.Record{
		rec(0, "p-a", "시카 크림", "25000", "['건선', '아토피']", "aaaa"),
		rec(1, "", "토너", "", "", "bb"),
		rec(2, "p-c", "세럼", "abc", "['건선'", "c"),
		rec(3, "p-d", "", "1000", "", "ddd"),
		rec(4, "p-e", "앰플", "-5", "", "   "),
	}

	report, err := svc.Rebuild(context.Background(), records)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if report.Loaded != 5 || report.Indexed != 3 || report.Rejected != 2 {
		t.Errorf("report = %+v, want loaded 5 indexed 3 rejected 2", report)
	}
	if report.ConditionParseFailures != 1 {
		t.Errorf("condition failures = %d, want 1", report.ConditionParseFailures)
	}
	if report.EmbeddingTokens != 3 || report.Dimension != 2 || idx.dim != 2 {
		t.Errorf("tokens = %d, dim = %d/%d", report.EmbeddingTokens, report.Dimension, idx.dim)
	}
	if emb.batches != 2 || idx.batches != 2 {
		t.Errorf("embed batches = %d, upsert batches = %d, want 2/2", emb.batches, idx.batches)
	}

	byID := make(map[string]product.Product)
	for _, p := range idx.upserted {
		byID[p.ID()] = p
	}
	a := byID["p-a"]
	if a.Price() != 25000 || !a.Conditions().Has("아토피") || a.Vector()[0] != 4 {
		t.Errorf("p-a = price %d, conditions %v, vector %v", a.Price(), a.Conditions(), a.Vector())
	}
	if _, ok := byID["p-1"]; !ok {
		t.Error("missing id should default to p-<row>")
	}
	c := byID["p-c"]
	if c.Price() != 0 || !c.Conditions().IsEmpty() {
		t.Errorf("p-c should have price 0 and no conditions, got %d %v", c.Price(), c.Conditions())
	}
}

func TestRebuild_ConditionListFromSource(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &lenEmbedder{}, Config{}, nil)

	r := rec(0, "x", "크림", "1", "", "t")
	r.ConditionList = []string{"여드름"}
	if _, err := svc.Rebuild(context.Background(), []domcat.Record{r}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !idx.upserted[0].Conditions().Has("여드름") {
		t.Errorf("conditions = %v", idx.upserted[0].Conditions())
	}
}

func TestRebuild_DuplicateIDsRejected(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &lenEmbedder{}, Config{}, nil)

	report, err := svc.Rebuild(context.Background(), []domcat.Record{
		rec(0, "dup", "first", "", "", "one"),
		rec(1, "dup", "second", "", "", "two"),
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if report.Indexed != 1 || report.Rejected != 1 || idx.upserted[0].Name() != "first" {
		t.Errorf("report = %+v, kept %q", report, idx.upserted[0].Name())
	}
}

func TestRebuild_NoValidProducts(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &lenEmbedder{}, Config{}, nil)

	_, err := svc.Rebuild(context.Background(), []domcat.Record{rec(0, "", "", "", "", "")})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if idx.dim != 0 {
		t.Error("index must not be recreated when nothing is valid")
	}
}

func TestRebuild_EmbedErrorAborts(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &lenEmbedder{err: domain.ErrEmbeddingProviderError}, Config{BatchSize: 1, Workers: 3}, nil)

	records := []domcat.Record{rec(0, "a", "a", "", "", "a"), rec(1, "b", "b", "", "", "b")}
	_, err := svc.Rebuild(context.Background(), records)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
	if idx.dim != 0 {
		t.Error("index must not be recreated after an embedding failure")
	}
}

func TestRebuild_IndexErrors(t *testing.T) {
	records := []domcat.Record{rec(0, "a", "a", "", "", "a")}

	tests := []struct {
		name string
		idx  *mockIndex
	}{
		{"recreate", &mockIndex{recreateFn: func(context.Context, int) error { return domain.ErrIndexUnavailable }}},
		{"upsert", &mockIndex{upsertFn: func(context.Context, []product.Product) error { return domain.ErrIndexUnavailable }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.idx, &lenEmbedder{}, Config{}, nil).Rebuild(context.Background(), records)
			if !errors.Is(err, domain.ErrIndexUnavailable) {
				t.Fatalf("err = %v, want ErrIndexUnavailable", err)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"25000", 25000},
		{" 25,000 ", 25000},
		{"19900.0", 19900},
		{"", 0},
		{"무료", 0},
		{"-100", 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		if got := parsePrice(tt.in); got != tt.want {
			t.Errorf("parsePrice(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
