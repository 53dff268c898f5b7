// Package formsession 保存内容编辑表单的会话快照，在线模式使用 Redis，本地模式使用内存。
package formsession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL         = 45 * time.Minute
	defaultPrefix      = "cms:form"
	fieldPayload       = "payload"
	fieldUpdatedAt     = "updated_at"
	errNotInitialised  = "form session store not initialised"
	errEmptySessionKey = "form session token is empty"
)

// Option 自定义存储行为。
type Option func(*options)

type options struct {
	prefix string
	ttl    time.Duration
}

// WithPrefix 覆盖默认的 key 前缀。
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = strings.TrimSuffix(prefix, ":")
		}
	}
}

// WithTTL 设置会话过期时间，每次写入都会刷新。
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RedisStore 将表单快照保存在 Redis Hash 中。
type RedisStore struct {
	client *redis.Client
	opts   options
}

// NewRedisStore 构造 RedisStore。
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: buildOptions(opts)}
}

// Save 写入快照并刷新 TTL。
func (s *RedisStore) Save(ctx context.Context, userID uint, token string, payload []byte) error {
	if s == nil || s.client == nil {
		return errors.New(errNotInitialised)
	}
	key, err := s.key(userID, token)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldPayload:   string(payload),
		fieldUpdatedAt: time.Now().Unix(),
	})
	pipe.Expire(ctx, key, s.opts.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store form session: %w", err)
	}
	return nil
}

// Load 读取快照，不存在时返回 nil。读取同样刷新 TTL。
func (s *RedisStore) Load(ctx context.Context, userID uint, token string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, errors.New(errNotInitialised)
	}
	key, err := s.key(userID, token)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.HGet(ctx, key, fieldPayload).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load form session: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.opts.ttl).Err(); err != nil {
		return nil, fmt.Errorf("touch form session: %w", err)
	}
	return []byte(raw), nil
}

// Delete 删除快照。
func (s *RedisStore) Delete(ctx context.Context, userID uint, token string) error {
	if s == nil || s.client == nil {
		return errors.New(errNotInitialised)
	}
	key, err := s.key(userID, token)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete form session: %w", err)
	}
	return nil
}

func (s *RedisStore) key(userID uint, token string) (string, error) {
	return sessionKey(s.opts.prefix, userID, token)
}

func sessionKey(prefix string, userID uint, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New(errEmptySessionKey)
	}
	return prefix + ":" + strconv.FormatUint(uint64(userID), 10) + ":" + token, nil
}

// MemoryStore 是本地模式与测试使用的内存实现，过期在读取时惰性清理。
type MemoryStore struct {
	mu    sync.Mutex
	opts  options
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	payload []byte
	expires time.Time
}

// NewMemoryStore 构造 MemoryStore。
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{opts: buildOptions(opts), items: make(map[string]memoryItem), now: time.Now}
}

// Save 写入快照。
func (m *MemoryStore) Save(_ context.Context, userID uint, token string, payload []byte) error {
	key, err := sessionKey(m.opts.prefix, userID, token)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryItem{payload: append([]byte(nil), payload...), expires: m.now().Add(m.opts.ttl)}
	return nil
}

// Load 读取快照，过期或不存在时返回 nil。
func (m *MemoryStore) Load(_ context.Context, userID uint, token string) ([]byte, error) {
	key, err := sessionKey(m.opts.prefix, userID, token)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	now := m.now()
	if now.After(item.expires) {
		delete(m.items, key)
		return nil, nil
	}
	item.expires = now.Add(m.opts.ttl)
	m.items[key] = item
	return append([]byte(nil), item.payload...), nil
}

// Delete 删除快照。
func (m *MemoryStore) Delete(_ context.Context, userID uint, token string) error {
	key, err := sessionKey(m.opts.prefix, userID, token)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
