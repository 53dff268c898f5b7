// Package ratelimit 提供固定窗口限流，目前用于批量操作。
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "cms:ratelimit"

// AllowResult 描述限流请求的结果。
type AllowResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// Policy 是一条限流规则，Limit 小于等于 0 表示不限流。
type Policy struct {
	Limit  int
	Window time.Duration
}

// Enabled 判断规则是否生效。
func (p Policy) Enabled() bool {
	return p.Limit > 0
}

// Limiter 定义限流器的通用能力。
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error)
}

// Key 生成用户维度的限流 key，例如 "bulk:42"。
func Key(action string, userID uint) string {
	return strings.TrimSpace(action) + ":" + strconv.FormatUint(uint64(userID), 10)
}

// RedisLimiter 使用 Redis 计数器实现限流。
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter 根据 Redis 客户端构造限流器，可自定义 key 前缀。
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisLimiter{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

// Allow 以 INCR + EXPIRE 实现固定窗口限流。
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error) {
	if limit <= 0 {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if r == nil || r.client == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}

	namespaced := r.prefix + ":" + key
	pipe := r.client.TxPipeline()
	counter := pipe.Incr(ctx, namespaced)
	pipe.Expire(ctx, namespaced, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return AllowResult{}, err
	}

	count := int(counter.Val())
	if count > limit {
		ttl, err := r.client.TTL(ctx, namespaced).Result()
		if err != nil {
			return AllowResult{}, err
		}
		if ttl < 0 {
			ttl = window
		}
		return AllowResult{Allowed: false, RetryAfter: ttl}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - count}, nil
}

// Peek 返回指定 key 当前的计数与剩余有效期。
func (r *RedisLimiter) Peek(ctx context.Context, key string) (int, time.Duration, error) {
	if r == nil || r.client == nil {
		return 0, 0, nil
	}
	namespaced := r.prefix + ":" + key
	value, err := r.client.Get(ctx, namespaced).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, 0, err
	}
	ttl, err := r.client.TTL(ctx, namespaced).Result()
	if err != nil {
		return 0, 0, err
	}
	return count, ttl, nil
}

// MemoryLimiter 是本地模式使用的内存实现。
type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]bucket
	now   func() time.Time
}

type bucket struct {
	count   int
	expires time.Time
}

// NewMemoryLimiter 构建内存版限流器。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{store: make(map[string]bucket), now: time.Now}
}

// Allow 通过内存 map 统计请求次数，行为与 RedisLimiter 一致。
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (AllowResult, error) {
	if limit <= 0 || m == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if period <= 0 {
		period = time.Minute
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.store[key]
	if !ok || !now.Before(w.expires) {
		m.store[key] = bucket{count: 1, expires: now.Add(period)}
		return AllowResult{Allowed: true, Remaining: limit - 1}, nil
	}

	w.count++
	m.store[key] = w
	if w.count > limit {
		return AllowResult{Allowed: false, RetryAfter: w.expires.Sub(now)}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - w.count}, nil
}

// Peek 获取指定 key 的计数与剩余有效期。
func (m *MemoryLimiter) Peek(key string) (int, time.Duration) {
	if m == nil {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.store[key]
	if !ok {
		return 0, 0
	}
	remaining := w.expires.Sub(m.now())
	if remaining <= 0 {
		delete(m.store, key)
		return 0, 0
	}
	return w.count, remaining
}
