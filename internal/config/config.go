package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the cosmerec configuration shared by the server, indexer and CLI.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Recommend RecommendConfig `yaml:"recommend"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverQdrant = "qdrant"
	DriverMemory = "memory"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Embedding cache kinds.
const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheStore = "store"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects the vector index backend. addrs and password apply to redis/valkey.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, qdrant, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QdrantConfig holds the Qdrant gRPC connection.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// IndexConfig holds HNSW settings for the redis/valkey index.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig selects the provider and model.
type EmbeddingConfig struct {
	Provider            string                    `yaml:"provider"` // key into Providers
	Providers           map[string]ProviderConfig `yaml:"providers"`
	Model               string                    `yaml:"model"`
	Dimensions          int                       `yaml:"dimensions"` // 0 = model default
	QueryInstruction    string                    `yaml:"query_instruction"`
	DocumentInstruction string                    `yaml:"document_instruction"`
	MaxBatchSize        int                       `yaml:"max_batch_size"`
	Cache               CacheConfig               `yaml:"cache"`
}

// ProviderConfig holds embedding provider connection settings.
type ProviderConfig struct {
	Type       string `yaml:"type"` // openai, ollama (default: the provider name)
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Kind   string `yaml:"kind"` // none, lru, store (default: lru)
	Size   int    `yaml:"size"` // lru entries
	TTLSec int    `yaml:"ttl_sec"`
}

// RecommendConfig tunes the ranking.
type RecommendConfig struct {
	ConditionBonus float64 `yaml:"condition_bonus"`
	SkinTypeBonus  float64 `yaml:"skin_type_bonus"`
	RecallFactor   int     `yaml:"recall_factor"`
	DefaultTopK    int     `yaml:"default_top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
}

// CatalogConfig locates the product corpus and tunes index rebuilds.
type CatalogConfig struct {
	Path           string `yaml:"path"`  // .csv, .parquet or sqlite file
	Table          string `yaml:"table"` // sqlite only
	RebuildOnStart bool   `yaml:"rebuild_on_start"`
	BatchSize      int    `yaml:"batch_size"`
	Workers        int    `yaml:"workers"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port <= 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "cosmetics"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.Cache.Kind == "" {
		c.Embedding.Cache.Kind = CacheLRU
	}
	if c.Embedding.Cache.Size <= 0 {
		c.Embedding.Cache.Size = 10000
	}
	if c.Recommend.ConditionBonus == 0 {
		c.Recommend.ConditionBonus = 0.3
	}
	if c.Recommend.SkinTypeBonus == 0 {
		c.Recommend.SkinTypeBonus = 0.2
	}
	if c.Recommend.RecallFactor <= 0 {
		c.Recommend.RecallFactor = 10
	}
	if c.Recommend.DefaultTopK <= 0 {
		c.Recommend.DefaultTopK = 5
	}
	if c.Recommend.MaxTopK <= 0 {
		c.Recommend.MaxTopK = 50
	}
	if c.Catalog.BatchSize <= 0 {
		c.Catalog.BatchSize = 64
	}
	if c.Catalog.Workers <= 0 {
		c.Catalog.Workers = 4
	}
	if c.Catalog.Table == "" {
		c.Catalog.Table = "products"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverQdrant, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, qdrant, memory, got %q", c.Database.Driver)
	}

	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	prov, ok := c.Embedding.Providers[c.Embedding.Provider]
	if !ok {
		return fmt.Errorf("embedding.provider %q has no entry in embedding.providers", c.Embedding.Provider)
	}
	switch t := c.ProviderType(); t {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("embedding.providers.%s.type must be \"openai\" or \"ollama\", got %q",
			c.Embedding.Provider, prov.Type)
	}

	switch c.Embedding.Cache.Kind {
	case CacheNone, CacheLRU:
	case CacheStore:
		if c.Database.Driver != DriverRedis && c.Database.Driver != DriverValkey {
			return fmt.Errorf("embedding.cache.kind \"store\" needs a redis or valkey database")
		}
	default:
		return fmt.Errorf("embedding.cache.kind must be none, lru or store, got %q", c.Embedding.Cache.Kind)
	}

	if c.Recommend.ConditionBonus < 0 || c.Recommend.SkinTypeBonus < 0 {
		return fmt.Errorf("recommend bonuses must not be negative")
	}
	if c.Catalog.RebuildOnStart && c.Catalog.Path == "" {
		return fmt.Errorf("catalog.rebuild_on_start needs catalog.path")
	}
	if c.Recommend.DefaultTopK > c.Recommend.MaxTopK {
		return fmt.Errorf("recommend.default_top_k (%d) exceeds recommend.max_top_k (%d)",
			c.Recommend.DefaultTopK, c.Recommend.MaxTopK)
	}
	return nil
}

// ActiveProvider returns the settings of the selected embedding provider.
func (c *Config) ActiveProvider() ProviderConfig {
	return c.Embedding.Providers[c.Embedding.Provider]
}

// ProviderType resolves the provider kind; an empty type falls back to the provider name.
func (c *Config) ProviderType() string {
	if t := c.ActiveProvider().Type; t != "" {
		return t
	}
	return c.Embedding.Provider
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
