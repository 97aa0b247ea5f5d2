package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supra-heroes/zorgbot/internal/types"
)

// RedisStore implements Store on a Redis backend. TTL enforcement is
// delegated to Redis key expiry.
type RedisStore struct {
	rdb *redis.Client

	mu     sync.Mutex
	closed bool

	getTimeout time.Duration
}

// RedisOptions holds connection parameters for the cache backend.
type RedisOptions struct {
	Address     string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	// GetTimeout bounds lookups on the critical response path.
	GetTimeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping
// bounded by the dial timeout. A connect failure is returned to the caller,
// who is expected to run without a cache rather than abort.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	getTimeout := opts.GetTimeout
	if getTimeout <= 0 {
		getTimeout = 500 * time.Millisecond
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Address,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis cache: %w", err)
	}

	return &RedisStore{rdb: rdb, getTimeout: getTimeout}, nil
}

func (s *RedisStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, s.getTimeout)
	defer cancel()

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is as good as absent
		return nil, ErrMiss
	}
	return &entry, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, env types.Envelope, ttl time.Duration) error {
	if s.isClosed() {
		return ErrClosed
	}

	entry := Entry{Envelope: env, ExpiresAt: time.Now().Add(ttl)}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache put marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, prefix string) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}

	var removed int
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			n, err := s.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache clear: %w", err)
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("cache clear scan: %w", err)
	}
	if len(batch) > 0 {
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return removed, fmt.Errorf("cache clear: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rdb.Close()
}
