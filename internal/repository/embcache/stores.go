package embcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/cosmerec/internal/db"
)

// LRUStore keeps vectors in process memory, evicting the least recently used
// entry beyond size and anything older than ttl.
type LRUStore struct {
	cache *expirable.LRU[string, []byte]
}

// NewLRUStore creates an in-process store. size 0 means unbounded, ttl 0 means
// entries never expire.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	return &LRUStore{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns db.ErrKeyNotFound on a miss.
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *LRUStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Add(key, value)
	return nil
}

// Len returns the number of live entries.
func (s *LRUStore) Len() int { return s.cache.Len() }

type ttlSetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// KVStore adapts a shared key-value store so every cached vector expires after ttl.
type KVStore struct {
	kv  ttlSetter
	ttl time.Duration
}

// NewKVStore wraps kv; ttl 0 keeps entries forever.
func NewKVStore(kv ttlSetter, ttl time.Duration) *KVStore {
	return &KVStore{kv: kv, ttl: ttl}
}

// Get reads a cached vector.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, key) //nolint:wrapcheck // transparent adapter
}

// Set writes a cached vector with the configured expiry.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.SetWithTTL(ctx, key, value, s.ttl) //nolint:wrapcheck // transparent adapter
}

var (
	_ Store = (*LRUStore)(nil)
	_ Store = (*KVStore)(nil)
)
