package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// EventsKey is the cache key of the public event list.
const EventsKey = "events"

// Source is the backend the cache reads through to.
type Source interface {
	Events(ctx context.Context) ([]model.Event, error)
	EventDetails(ctx context.Context, id string) (*model.Event, error)
}

// Backend stores cached event lists by key.
type Backend interface {
	// Get returns the list under key; ok is false on a miss.
	Get(ctx context.Context, key string) (events []model.Event, ok bool, err error)
	Set(ctx context.Context, key string, events []model.Event) error
	Delete(ctx context.Context, key string) error
}

// Cache serves the event list from its backend and fetches it from the
// source on a miss. There is no background polling: entries are replaced
// only after an explicit Invalidate.
type Cache struct {
	source  Source
	backend Backend
	logger  *zap.Logger
	group   singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

// NewCache returns a cache over source. A nil backend means in-process memory.
func NewCache(source Source, backend Backend, logger *zap.Logger) *Cache {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		source:  source,
		backend: backend,
		logger:  logger.Named("events"),
		gen:     make(map[string]uint64),
	}
}

// Events returns the partitioned public event list. Concurrent misses share
// one backend fetch.
func (c *Cache) Events(ctx context.Context) (Catalog, error) {
	list, err := c.load(ctx, EventsKey)
	if err != nil {
		return Catalog{}, err
	}
	return Partition(list), nil
}

// Invalidate marks key stale so the next read fetches from the source. A
// fetch already in flight for key is not allowed to repopulate it.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	c.gen[key]++
	c.mu.Unlock()
	c.group.Forget(key)

	if err := c.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	c.logger.Debug("cache invalidated", zap.String("key", key))
	return nil
}

// Details fetches a single event. Single events are not cached.
func (c *Cache) Details(ctx context.Context, id string) (*model.Event, error) {
	return c.source.EventDetails(ctx, id)
}

func (c *Cache) load(ctx context.Context, key string) ([]model.Event, error) {
	list, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, fetching", zap.String("key", key), zap.Error(err))
	} else if ok {
		return list, nil
	}

	c.mu.Lock()
	gen := c.gen[key]
	c.mu.Unlock()

	// The fetch is shared, so one caller giving up must not fail the rest.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		fetched, err := c.source.Events(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		current := c.gen[key]
		c.mu.Unlock()
		if current == gen {
			if err := c.backend.Set(fetchCtx, key, fetched); err != nil {
				c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		c.logger.Debug("events fetched", zap.Int("count", len(fetched)))
		return fetched, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetch events: %w", res.Err)
		}
		return res.Val.([]model.Event), nil
	}
}

// ─── Memory backend ───────────────────────────────────────────────────────────

// MemoryBackend keeps entries in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]model.Event
}

// NewMemoryBackend returns an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]model.Event)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]model.Event, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]model.Event, len(list))
	copy(out, list)
	return out, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, events []model.Event) error {
	stored := make([]model.Event, len(events))
	copy(stored, events)
	b.mu.Lock()
	b.entries[key] = stored
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// ─── Redis backend ────────────────────────────────────────────────────────────

const redisKeyPrefix = "eventhub:query:"

// RedisBackend stores entries as JSON strings so several storefront
// processes share one cached list and one invalidation.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend returns a Redis backend. A zero ttl keeps entries until
// they are invalidated.
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]model.Event, bool, error) {
	raw, err := b.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var list []model.Event
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return list, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, events []model.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, redisKey(key), data, b.ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, redisKey(key)).Err()
}
