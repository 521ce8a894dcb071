package cosmerec

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis", "qdrant" or "memory"
	addrs    []string
	password string

	qdrantHost       string
	qdrantPort       int
	qdrantAPIKey     string
	qdrantCollection string

	embedder Embedder
	scoring  Scoring

	hnswM           int
	hnswEFConstruct int
	batchSize       int
	workers         int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores the index in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores the index in a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithQdrant stores the index in a Qdrant collection reached over gRPC.
// An empty collection uses "cosmetics".
func WithQdrant(host string, port int, apiKey, collection string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.qdrantHost = host
		c.qdrantPort = port
		c.qdrantAPIKey = apiKey
		c.qdrantCollection = collection
	})
}

// WithMemory keeps the index in process memory. Nothing is persisted.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithScoring overrides the re-rank constants.
// Defaults: +0.3 condition match, +0.2 skin-type match, recall ×10.
func WithScoring(s Scoring) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoring = s
	})
}

// WithHNSW configures HNSW index parameters for Redis/Valkey (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithBatchSize sets how many texts go into one embedding call while indexing.
// Default: 64.
func WithBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = size
	})
}

// WithWorkers sets how many embedding calls run at once while indexing.
// Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
