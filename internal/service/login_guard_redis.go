package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eraverse/sales-admin-service/internal/observability"
)

const loginFailKeyPrefix = "loginfail:"

// LoginGuard throttles credential guessing per client IP. Failures are
// counted in a fixed window; once the cap is reached further attempts are
// refused until the window lapses or a successful login resets it.
type LoginGuard interface {
	Allow(ctx context.Context, ip string) (bool, error)
	RecordFailure(ctx context.Context, ip string) error
	Reset(ctx context.Context, ip string) error
}

type RedisLoginGuard struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
}

func NewRedisLoginGuard(client *redis.Client, maxFailures int, window time.Duration) *RedisLoginGuard {
	return &RedisLoginGuard{client: client, maxFailures: maxFailures, window: window}
}

func loginFailKey(ip string) string { return loginFailKeyPrefix + ip }

func (g *RedisLoginGuard) Allow(ctx context.Context, ip string) (bool, error) {
	count, err := g.client.Get(ctx, loginFailKey(ip)).Int()
	if err != nil {
		if err == redis.Nil {
			observability.RecordRateLimitDecision(ctx, "login", "allowed")
			return true, nil
		}
		return false, fmt.Errorf("login guard lookup: %w", err)
	}
	if count >= g.maxFailures {
		observability.RecordRateLimitDecision(ctx, "login", "blocked")
		return false, nil
	}
	observability.RecordRateLimitDecision(ctx, "login", "allowed")
	return true, nil
}

func (g *RedisLoginGuard) RecordFailure(ctx context.Context, ip string) error {
	key := loginFailKey(ip)
	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("login guard incr: %w", err)
	}
	// The window starts at the first failure and is not extended by
	// later ones.
	if count == 1 {
		if err := g.client.Expire(ctx, key, g.window).Err(); err != nil {
			return fmt.Errorf("login guard expire: %w", err)
		}
	}
	return nil
}

func (g *RedisLoginGuard) Reset(ctx context.Context, ip string) error {
	if err := g.client.Del(ctx, loginFailKey(ip)).Err(); err != nil {
		return fmt.Errorf("login guard reset: %w", err)
	}
	return nil
}
