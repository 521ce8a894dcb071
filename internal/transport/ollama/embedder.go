// Package ollama embeds texts through a local Ollama server's /api/embed endpoint.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/metrics"
)

const (
	// DefaultBaseURL is where `ollama serve` listens by default.
	DefaultBaseURL    = "http://localhost:11434"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
	providerName      = "ollama"
)

// Config holds the Ollama connection settings.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // doubled after each failed attempt
	Logger     *zap.Logger
}

// Embedder implements domain.Embedder and domain.BatchEmbedder on Ollama.
type Embedder struct {
	client     *api.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewEmbedder parses the base URL and builds the API client.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", raw, err)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     api.NewClient(base, &http.Client{Timeout: timeout}),
		model:      cfg.Model,
		maxRetries: retries,
		retryDelay: delay,
		logger:     logger,
	}, nil
}

// Embed returns the vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	resp, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    resp.Embeddings[0],
		PromptTokens: resp.PromptEvalCount,
		TotalTokens:  resp.PromptEvalCount,
	}, nil
}

// BatchEmbed embeds all texts in one /api/embed call. Ollama returns vectors in input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	resp, err := e.embed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingProviderError, len(resp.Embeddings), len(texts))
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   resp.Embeddings,
		PromptTokens: resp.PromptEvalCount,
		TotalTokens:  resp.PromptEvalCount,
	}, nil
}

// embed retries failed calls with exponential backoff until the context ends.
func (e *Embedder) embed(ctx context.Context, input []string) (*api.EmbedResponse, error) {
	req := &api.EmbedRequest{Model: e.model, Input: input}
	delay := e.retryDelay

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		start := time.Now()
		resp, err := e.client.Embed(ctx, req)
		duration := time.Since(start)

		if err == nil && len(resp.Embeddings) > 0 {
			metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
			metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())
			if resp.PromptEvalCount > 0 {
				metrics.EmbeddingTokensTotal.WithLabelValues(providerName, e.model, "total").
					Add(float64(resp.PromptEvalCount))
			}
			return resp, nil
		}
		if err == nil {
			err = fmt.Errorf("empty embedding response")
		}
		lastErr = err
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()

		if attempt == e.maxRetries {
			break
		}
		e.logger.Warn("Ollama embed attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
	return nil, fmt.Errorf("%w: ollama embed failed after %d attempts: %w",
		domain.ErrEmbeddingProviderError, e.maxRetries, lastErr)
}

// HealthCheck pings the Ollama server.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
