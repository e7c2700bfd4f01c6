package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const quotaKeyPrefix = "ytcache:quota:"

// dayKeyTTL keeps a day's counter around long enough to be read after the reset.
const dayKeyTTL = 48 * time.Hour

// RedisStore keeps daily counters in Redis so every server and worker
// process draws from the same budget.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Used(ctx context.Context, day string) (int, error) {
	n, err := s.client.Get(ctx, quotaKeyPrefix+day).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota counter: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Increment(ctx context.Context, day string, units int) (int, error) {
	key := quotaKeyPrefix + day

	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(units))
	pipe.Expire(ctx, key, dayKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment quota counter: %w", err)
	}

	return int(incr.Val()), nil
}

// MemoryStore is a process-local Store, used when Redis is not configured.
type MemoryStore struct {
	mu   sync.Mutex
	used map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{used: make(map[string]int)}
}

func (s *MemoryStore) Used(_ context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[day], nil
}

func (s *MemoryStore) Increment(_ context.Context, day string, units int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[day] += units
	return s.used[day], nil
}
