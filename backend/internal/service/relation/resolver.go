// Package relation 将关联字段中的标识解析为目标集合的内容行。
package relation

import (
	"context"
	"errors"
	"fmt"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"
	"headless-cms/backend/internal/service/values"
)

// ErrNotRelation 表示字段不是关联字段。
var ErrNotRelation = errors.New("field is not a relation")

// Lookup 是关联解析依赖的内容服务能力，*entry.Service 满足该接口。
type Lookup interface {
	Context(ctx context.Context, scope entry.Scope) (*project.Project, *project.Collection, []schema.Field, error)
	FindByIDs(ctx context.Context, scope entry.Scope, ids []uint) ([]content.Entry, error)
}

// Resolution 是一次关联解析的结果。
type Resolution struct {
	CollectionID uint                 `json:"collection_id"`
	Fields       []schema.Field       `json:"fields"`
	Columns      []contentlist.Column `json:"columns"`
	Entries      []content.Entry      `json:"entries"`
	Rows         []contentlist.Row    `json:"rows"`
	Missing      []any                `json:"missing"`
	Reorderable  bool                 `json:"reorderable"`
}

// Resolver 按标识查询关联内容。
type Resolver struct {
	lookup Lookup
	render contentlist.RenderOptions
}

// NewResolver 构造 Resolver。
func NewResolver(lookup Lookup, render contentlist.RenderOptions) *Resolver {
	return &Resolver{lookup: lookup, render: render}
}

// Resolve 按 ids 的顺序返回目标集合中的内容与可展示字段。
// 目标集合可以是当前集合；不存在的标识收集在 Missing 中。
// 同时展示状态与创建时间列时视为完整列表，不允许手动排序。
func (r *Resolver) Resolve(ctx context.Context, projectID, collectionID uint, ids []any, opts contentlist.ColumnOptions) (Resolution, error) {
	scope := entry.Scope{ProjectID: projectID, CollectionID: collectionID}
	_, _, tree, err := r.lookup.Context(ctx, scope)
	if err != nil {
		return Resolution{}, err
	}
	ordered := values.IDList(ids)
	keys := values.UintIDs(ordered)
	found, err := r.lookup.FindByIDs(ctx, scope, keys)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve relation: %w", err)
	}

	present := make(map[string]struct{}, len(found))
	for _, e := range found {
		present[values.IDKey(int64(e.ID))] = struct{}{}
	}
	missing := []any{}
	for _, id := range ordered {
		if _, ok := present[values.IDKey(id)]; !ok {
			missing = append(missing, id)
		}
	}

	displayable := make([]schema.Field, 0, len(tree))
	for _, f := range tree {
		if f.Displayable() {
			displayable = append(displayable, f)
		}
	}
	columns := contentlist.Columns(tree, opts)
	return Resolution{
		CollectionID: collectionID,
		Fields:       displayable,
		Columns:      columns,
		Entries:      found,
		Rows:         contentlist.RenderRows(found, columns, contentlist.DefaultSettings(), r.render),
		Missing:      missing,
		Reorderable:  !(opts.ShowStatus && opts.ShowCreated),
	}, nil
}

// ResolveField 解析表单中某个关联字段当前的值，未配置目标集合时视为自关联。
func (r *Resolver) ResolveField(ctx context.Context, scope entry.Scope, field schema.Field, value any, opts contentlist.ColumnOptions) (Resolution, error) {
	if field.Type != schema.TypeRelation {
		return Resolution{}, fmt.Errorf("%w: %s", ErrNotRelation, field.Name)
	}
	target := field.RelationCollectionID()
	if target == 0 {
		target = scope.CollectionID
	}
	return r.Resolve(ctx, scope.ProjectID, target, values.IDList(value), opts)
}
