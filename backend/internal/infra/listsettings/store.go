// Package listsettings 持久化内容列表的表格设置，每个用户的每个 pageName 一份。
package listsettings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "cms:table"

// Key 生成用户维度的设置 key。
func Key(userID uint, pageName string) string {
	return strconv.FormatUint(uint64(userID), 10) + ":" + strings.TrimSpace(pageName)
}

// RedisStore 使用 Redis 字符串保存设置，不设置过期时间。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 构造 RedisStore。
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

// Load 读取设置，不存在时第二个返回值为 false。
func (s *RedisStore) Load(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, errors.New("table settings store not initialised")
	}
	blob, err := s.client.Get(ctx, s.prefix+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load table settings: %w", err)
	}
	return blob, true, nil
}

// Save 覆盖写入设置，多个标签页并发写入时以最后一次为准。
func (s *RedisStore) Save(ctx context.Context, key, blob string) error {
	if s == nil || s.client == nil {
		return errors.New("table settings store not initialised")
	}
	if err := s.client.Set(ctx, s.prefix+":"+key, blob, 0).Err(); err != nil {
		return fmt.Errorf("save table settings: %w", err)
	}
	return nil
}

// MemoryStore 是本地模式使用的内存实现。
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemoryStore 构造 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]string)}
}

// Load 读取设置。
func (m *MemoryStore) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	return blob, ok, nil
}

// Save 写入设置。
func (m *MemoryStore) Save(_ context.Context, key, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob
	return nil
}
