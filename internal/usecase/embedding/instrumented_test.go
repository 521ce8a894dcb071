package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
	short      bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	n := len(texts)
	if m.short {
		n--
	}
	embeddings := make([][]float32, n)
	for i := range embeddings {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * n,
		TotalTokens:  m.result.TotalTokens * n,
	}, nil
}

// singleOnly has no native batch call.
type singleOnly struct {
	calls int
}

func (s *singleOnly) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 9}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 0, zap.NewNop())

	result, err := p.Embed(context.Background(), "건조한 피부")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 9 {
		t.Fatalf("result = %+v", result)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 0, nil)

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestInstrumentedEmbedder_BatchChunking(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 2}}
	p := NewInstrumentedEmbedder(inner, "test", "m", 4, zap.NewNop())

	texts := make([]string, 10)
	res, err := p.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{4, 4, 2}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("chunks = %v, want %v", inner.batchSizes, want)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Errorf("chunk[%d] = %d, want %d", i, inner.batchSizes[i], want[i])
		}
	}
	if len(res.Embeddings) != 10 {
		t.Errorf("embeddings = %d, want 10", len(res.Embeddings))
	}
	if res.TotalTokens != 20 {
		t.Errorf("tokens = %d, want 20", res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_BatchFallback(t *testing.T) {
	inner := &singleOnly{}
	p := NewInstrumentedEmbedder(inner, "test", "m", 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
	if res.Embeddings[2][0] != 3 {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
}

func TestInstrumentedEmbedder_BatchErrors(t *testing.T) {
	tests := []struct {
		name  string
		inner *mockEmbedder
	}{
		{"provider error", &mockEmbedder{batchErr: errors.New("503")}},
		{"short response", &mockEmbedder{short: true, result: domain.EmbeddingResult{Embedding: []float32{1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewInstrumentedEmbedder(tt.inner, "test", "m", 0, zap.NewNop())
			if _, err := p.BatchEmbed(context.Background(), []string{"a", "b"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInstrumentedEmbedder_BatchEmpty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "m", 0, zap.NewNop())
	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 || len(inner.batchSizes) != 0 {
		t.Errorf("empty input must not call provider")
	}
}
