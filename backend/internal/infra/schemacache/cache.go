// Package schemacache 缓存每个集合整理后的字段树。
package schemacache

import (
	"context"
	"strconv"
	"time"

	"headless-cms/backend/internal/domain/schema"

	"github.com/patrickmn/go-cache"
)

// DefaultTTL 是字段树的默认缓存时间。
const DefaultTTL = 5 * time.Minute

// FieldLister 列出集合的扁平字段。
type FieldLister interface {
	ListByCollection(ctx context.Context, collectionID uint) ([]schema.Field, error)
}

// Cache 以集合 ID 为 key 缓存 schema.Organize 的结果。
type Cache struct {
	fields FieldLister
	cache  *cache.Cache
}

// New 构造缓存，ttl 小于等于 0 时使用 DefaultTTL。
func New(fields FieldLister, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		fields: fields,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Fields 返回整理后的字段树，调用方拿到的是副本。
func (c *Cache) Fields(ctx context.Context, collectionID uint) ([]schema.Field, error) {
	key := strconv.FormatUint(uint64(collectionID), 10)
	if cached, found := c.cache.Get(key); found {
		return cloneTree(cached.([]schema.Field)), nil
	}
	flat, err := c.fields.ListByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	tree := schema.Organize(flat)
	c.cache.Set(key, tree, cache.DefaultExpiration)
	return cloneTree(tree), nil
}

// Invalidate 清除某个集合的缓存，字段变更后调用。
func (c *Cache) Invalidate(collectionID uint) {
	c.cache.Delete(strconv.FormatUint(uint64(collectionID), 10))
}

func cloneTree(tree []schema.Field) []schema.Field {
	out := make([]schema.Field, len(tree))
	for i, f := range tree {
		out[i] = f
		if f.Children != nil {
			out[i].Children = append([]schema.Field(nil), f.Children...)
		}
	}
	return out
}
