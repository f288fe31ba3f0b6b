// Package cache stores query results for the window requested by cache=true.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrKeyNotFound is returned by a Store on a miss or an expired entry.
	ErrKeyNotFound = errors.New("cache key not found")
)

// Store is a byte-oriented TTL cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ============================================================================
// REDIS STORE
// ============================================================================

// RedisStore implements Store on Redis string keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. Keys are written as prefix+key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get retrieves a value from Redis
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return result, nil
}

// Set stores a value in Redis with TTL
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// ============================================================================
// MEMORY STORE
// ============================================================================

type memoryItem struct {
	value      []byte
	expiration time.Time
}

// MemoryStore implements Store in process. Expired entries are dropped on
// read.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryItem{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !item.expiration.IsZero() && !m.now().Before(item.expiration) {
		delete(m.items, key)
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), item.value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

// ============================================================================
// RESULT CACHE
// ============================================================================

// Stats counts result cache lookups.
type Stats struct {
	Hits   int64
	Misses int64
}

// ResultCache memoizes query results as JSON under a digest of the query.
// Store failures are logged and treated as misses.
type ResultCache struct {
	store  Store
	logger *slog.Logger
	hits   int64
	misses int64
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithLogger sets the logger for store failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *ResultCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a result cache over store.
func New(store Store, opts ...Option) *ResultCache {
	c := &ResultCache{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives a stable key from a statement and its arguments.
func Key(namespace, statement string, args ...any) string {
	h := sha256.New()
	h.Write([]byte(statement))
	if len(args) > 0 {
		encoded, err := json.Marshal(args)
		if err != nil {
			encoded = []byte(fmt.Sprint(args...))
		}
		h.Write([]byte{0})
		h.Write(encoded)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// Load decodes the entry under key into dst. It reports false on a miss.
func (c *ResultCache) Load(ctx context.Context, key string, dst any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Warn("result cache read failed", "key", key, "error", err)
		}
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("result cache entry unreadable", "key", key, "error", err)
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	atomic.AddInt64(&c.hits, 1)
	return true
}

// Save stores v under key for ttl. A non-positive ttl skips the write.
func (c *ResultCache) Save(ctx context.Context, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("result cache entry not encodable", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("result cache write failed", "key", key, "error", err)
	}
}

// Stats returns the hit and miss counters.
func (c *ResultCache) Stats() Stats {
	return Stats{Hits: atomic.LoadInt64(&c.hits), Misses: atomic.LoadInt64(&c.misses)}
}
