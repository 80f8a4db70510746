// Package delivery hands emitted signals to their collaborators: same-day
// dedup, the signal store and the notifier.
package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Deduper claims a key once per TTL window
type Deduper interface {
	// Claim returns true for the first caller within ttl
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so the key can be claimed again
	Release(ctx context.Context, key string) error
}

// MemoryDeduper is the in-process Deduper used when REDIS_ADDR is unset
type MemoryDeduper struct {
	mu  sync.Mutex
	m   map[string]time.Time
	now func() time.Time
}

// NewMemoryDeduper creates an empty deduper
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{m: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.m[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	d.m[key] = exp
	return true, nil
}

func (d *MemoryDeduper) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.m, key)
	return nil
}

const dedupPrefix = "signalrun:dedup:"

// RedisDeduper shares dedup state across processes with SETNX
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper wraps an existing client
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// DialRedis connects and pings the server at addr
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

func (r *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, dedupPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (r *RedisDeduper) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, dedupPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
