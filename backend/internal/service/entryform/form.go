// Package entryform 维护单条内容的编辑状态，按字段类型应用修改并驱动保存与危险操作。
package entryform

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/infra/slug"
	"headless-cms/backend/internal/service/relation"
	"headless-cms/backend/internal/service/values"
)

var (
	// ErrUnknownField 表示字段不在当前集合的顶层字段中。
	ErrUnknownField = errors.New("unknown field")
	// ErrIndexOutOfRange 表示重复字段的下标越界。
	ErrIndexOutOfRange = errors.New("repeatable index out of range")
	// ErrNotRelation 表示对非关联字段执行了排序或解析。
	ErrNotRelation = relation.ErrNotRelation
)

// Form 是一次编辑会话的全部状态，可整体序列化保存。
type Form struct {
	Token        string            `json:"token"`
	ProjectID    uint              `json:"project_id"`
	CollectionID uint              `json:"collection_id"`
	EntryID      uint              `json:"entry_id,omitempty"`
	Status       string            `json:"status"`
	Locale       string            `json:"locale"`
	Locales      []string          `json:"locales"`
	Fields       []schema.Field    `json:"fields"`
	State        values.State      `json:"state"`
	Errors       map[string]string `json:"errors"`
	Processing   bool              `json:"processing"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsNew 判断表单是否对应尚未保存的新内容。
func (f *Form) IsNew() bool {
	return f.EntryID == 0
}

// Field 按名称查找顶层字段。
func (f *Form) Field(name string) (schema.Field, bool) {
	return schema.FindByName(f.Fields, name)
}

// ApplyFieldChange 应用一次字段修改并返回新的表单值。
// index 仅对非分组的重复字段生效，用于修改单个条目；为 nil 时整体替换。
// 若存在跟随该字段的 slug 字段，slug 在同一次更新中重新生成。
func (f *Form) ApplyFieldChange(name string, value any, index *int) (values.State, error) {
	field, ok := f.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	next := f.State.Clone()
	if next == nil {
		next = values.State{}
	}
	switch {
	case field.IsGroup():
		next[name] = values.NormalizeValue(field, value)
	case field.IsRepeatable() && index != nil:
		items, _ := next[name].([]any)
		i := *index
		if i < 0 || i > len(items) {
			return nil, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, name, i)
		}
		items = slices.Clone(items)
		if i == len(items) {
			items = append(items, values.Wrap(value))
		} else {
			items[i] = values.Wrap(value)
		}
		next[name] = items
	case field.IsRepeatable():
		next[name] = values.NormalizeValue(field, value)
	case field.Type == schema.TypeMedia:
		next[name] = values.NormalizeMedia(field, value)
	default:
		next[name] = value
	}

	if !field.IsRepeatable() && !field.IsGroup() {
		for _, target := range f.Fields {
			if target.SlugSource() == name && target.Name != name {
				next[target.Name] = slug.FromValue(value)
			}
		}
	}

	f.State = next
	delete(f.Errors, name)
	return next, nil
}

// ReorderRelation 用新的标识顺序替换关联字段的值，新顺序必须是原值的一个排列。
// 修改只写入表单，随正常保存一起落库。
func (f *Form) ReorderRelation(name string, ids []any) (values.State, error) {
	field, ok := f.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if field.Type != schema.TypeRelation {
		return nil, fmt.Errorf("%w: %s", ErrNotRelation, name)
	}
	ordered, err := relation.Reorder(values.IDList(f.State[name]), ids)
	if err != nil {
		return nil, err
	}
	next := f.State.Clone()
	next[name] = ordered
	f.State = next
	return next, nil
}

// SetLocale 切换保存时使用的语言，只接受项目已配置的语言。
func (f *Form) SetLocale(locale string) error {
	if !slices.Contains(f.Locales, locale) {
		return fmt.Errorf("unsupported locale %q", locale)
	}
	f.Locale = locale
	return nil
}

// reset 将表单恢复为新建状态，语言保持不变。
func (f *Form) reset() {
	f.EntryID = 0
	f.Status = ""
	f.State = values.DefaultsFor(f.Fields)
	f.Errors = map[string]string{}
}
