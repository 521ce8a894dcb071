package cosmerec

import (
	"context"
	"strings"

	domcat "github.com/kailas-cloud/cosmerec/internal/domain/catalog"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
	cataloguc "github.com/kailas-cloud/cosmerec/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/cosmerec/internal/usecase/health"
)

// --- recommendUseCase mock ---

type mockEngine struct {
	recommendFn func(ctx context.Context, d diagnosis.Diagnosis, p preference.Preference, topK int) (domrec.Result, error)
	queryFn     func(d diagnosis.Diagnosis, p preference.Preference) string
}

func (m *mockEngine) Recommend(
	ctx context.Context, d diagnosis.Diagnosis, p preference.Preference, topK int,
) (domrec.Result, error) {
	return m.recommendFn(ctx, d, p, topK)
}

func (m *mockEngine) Query(d diagnosis.Diagnosis, p preference.Preference) string {
	return m.queryFn(d, p)
}

// --- catalogUseCase mock ---

type mockCatalog struct {
	rebuildFn func(ctx context.Context, records []domcat.Record) (cataloguc.Report, error)
}

func (m *mockCatalog) Rebuild(ctx context.Context, records []domcat.Record) (cataloguc.Report, error) {
	return m.rebuildFn(ctx, records)
}

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// keywordEmbedder maps 건선 to the x axis, 아토피 to y and everything else to z.
func keywordEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		switch {
		case strings.Contains(text, "건선"):
			return EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 1}, nil
		case strings.Contains(text, "아토피"):
			return EmbeddingResult{Embedding: []float32{0, 1, 0}, TotalTokens: 1}, nil
		default:
			return EmbeddingResult{Embedding: []float32{0, 0, 1}, TotalTokens: 1}, nil
		}
	}}
}

// --- helpers ---

func testClient(engine recommendUseCase, catalog catalogUseCase, health healthUseCase) *Client {
	return &Client{
		engine:     engine,
		catalogSvc: catalog,
		healthSvc:  health,
	}
}
