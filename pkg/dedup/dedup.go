// Package dedup guards trigger idempotency keys so retried submissions run at most once per window.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a claimed key blocks duplicates.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "deskflow:idempotency:"

var ErrEmptyKey = errors.New("idempotency key is empty")

// RedisGuard claims keys with SET NX so that several API and worker replicas agree on the first claimant.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisGuard{client: client, ttl: ttl}
}

// NewRedisGuardFromURL parses a redis:// URL such as redis://localhost:6379/0.
func NewRedisGuardFromURL(url string, ttl time.Duration) (*RedisGuard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewRedisGuard(redis.NewClient(opts), ttl), nil
}

// Claim reports true when key was not claimed before within the TTL.
func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}

	claimed, err := g.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	return claimed, nil
}

// Release forgets key so that a later submission can claim it again.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}

	return nil
}

func (g *RedisGuard) HealthCheck(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// MemoryGuard is the single-process variant used when no Redis is configured.
type MemoryGuard struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	claims map[string]time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryGuard{ttl: ttl, now: time.Now, claims: make(map[string]time.Time)}
}

func (g *MemoryGuard) Claim(_ context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if expiresAt, exists := g.claims[key]; exists && now.Before(expiresAt) {
		return false, nil
	}

	g.claims[key] = now.Add(g.ttl)

	for k, expiresAt := range g.claims {
		if !now.Before(expiresAt) {
			delete(g.claims, k)
		}
	}

	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.claims, key)

	return nil
}
