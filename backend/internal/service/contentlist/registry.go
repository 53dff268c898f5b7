package contentlist

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultIdleTTL 是表格实例无访问后保留的时间。
const DefaultIdleTTL = 10 * time.Minute

// Registry 按 key 保存活跃的表格实例，闲置过期或被移除时自动 Close。
type Registry struct {
	mu     sync.Mutex
	tables *cache.Cache
	ttl    time.Duration
}

// NewRegistry 构造 Registry，ttl 小于等于 0 时使用 DefaultIdleTTL。
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	tables := cache.New(ttl, ttl/2)
	tables.OnEvicted(func(_ string, value any) {
		if t, ok := value.(*Table); ok {
			t.Close()
		}
	})
	return &Registry{tables: tables, ttl: ttl}
}

// Acquire 返回 key 对应的表格，不存在时调用 build 创建。每次访问都会续期。
func (r *Registry) Acquire(key string, build func() (*Table, error)) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value, found := r.tables.Get(key); found {
		t := value.(*Table)
		r.tables.Set(key, t, cache.DefaultExpiration)
		return t, nil
	}
	t, err := build()
	if err != nil {
		return nil, err
	}
	r.tables.Set(key, t, cache.DefaultExpiration)
	return t, nil
}

// Remove 关闭并移除表格。
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables.Delete(key)
}

// Len 返回活跃表格数量。
func (r *Registry) Len() int {
	return r.tables.ItemCount()
}

// Close 关闭全部表格，进程退出前调用。
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.tables.Items() {
		r.tables.Delete(key)
	}
}
