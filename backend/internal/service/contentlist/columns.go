package contentlist

import (
	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/schema"
)

// FilterType 是列筛选控件类型。
type FilterType string

const (
	FilterText   FilterType = "text"
	FilterSelect FilterType = "select"
	FilterDate   FilterType = "date"
)

// Filter 描述列上的筛选控件。
type Filter struct {
	Type    FilterType `json:"type"`
	Options []string   `json:"options,omitempty"`
}

// 系统列名。
const (
	ColumnID        = "id"
	ColumnLocale    = "locale"
	ColumnStatus    = "status"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Column 是表格列定义。
type Column struct {
	Header      string        `json:"header"`
	AccessorKey string        `json:"accessorKey"`
	Sortable    bool          `json:"sortable"`
	Filter      *Filter       `json:"filter,omitempty"`
	Field       *schema.Field `json:"-"`
}

// ColumnOptions 控制系统列的展示。
type ColumnOptions struct {
	ShowStatus  bool
	ShowCreated bool
	ShowUpdated bool
}

// DefaultColumnOptions 是内容列表页的系统列配置。
func DefaultColumnOptions() ColumnOptions {
	return ColumnOptions{ShowStatus: true, ShowCreated: true}
}

// Columns 根据字段树生成列定义：可展示的顶层字段在前，系统列在后。
func Columns(tree []schema.Field, opts ColumnOptions) []Column {
	columns := make([]Column, 0, len(tree)+3)
	for i := range tree {
		field := tree[i]
		if !field.Displayable() {
			continue
		}
		label := field.Label
		if label == "" {
			label = field.Name
		}
		columns = append(columns, Column{
			Header:      label,
			AccessorKey: field.Name,
			Sortable:    isSortable(field),
			Filter:      filterFor(field),
			Field:       &field,
		})
	}
	if opts.ShowStatus {
		columns = append(columns, Column{
			Header:      "Status",
			AccessorKey: ColumnStatus,
			Sortable:    true,
			Filter:      &Filter{Type: FilterSelect, Options: []string{content.StatusDraft, content.StatusPublished}},
		})
	}
	if opts.ShowCreated {
		columns = append(columns, Column{
			Header:      "Created",
			AccessorKey: ColumnCreatedAt,
			Sortable:    true,
			Filter:      &Filter{Type: FilterDate},
		})
	}
	if opts.ShowUpdated {
		columns = append(columns, Column{
			Header:      "Updated",
			AccessorKey: ColumnUpdatedAt,
			Sortable:    true,
			Filter:      &Filter{Type: FilterDate},
		})
	}
	return columns
}

func isSortable(field schema.Field) bool {
	if field.IsRepeatable() {
		return false
	}
	switch field.Type {
	case schema.TypeText, schema.TypeEmail, schema.TypeSlug, schema.TypeNumber,
		schema.TypeBoolean, schema.TypeColor, schema.TypeDate, schema.TypeTime:
		return true
	case schema.TypeEnumeration:
		return !field.IsMultipleEnumeration()
	case schema.TypeLongText, schema.TypePassword, schema.TypeMedia, schema.TypeRelation,
		schema.TypeRichText, schema.TypeJSON, schema.TypeGroup:
		return false
	default:
		return false
	}
}

func filterFor(field schema.Field) *Filter {
	switch field.Type {
	case schema.TypeText, schema.TypeLongText, schema.TypeEmail, schema.TypeSlug,
		schema.TypeNumber, schema.TypeColor, schema.TypeTime, schema.TypeRichText:
		return &Filter{Type: FilterText}
	case schema.TypeEnumeration:
		var options []string
		if field.Options.Enumeration != nil {
			options = append(options, field.Options.Enumeration.List...)
		}
		return &Filter{Type: FilterSelect, Options: options}
	case schema.TypeBoolean:
		return &Filter{Type: FilterSelect, Options: []string{"true", "false"}}
	case schema.TypeDate:
		return &Filter{Type: FilterDate}
	case schema.TypePassword, schema.TypeMedia, schema.TypeRelation, schema.TypeJSON, schema.TypeGroup:
		return nil
	default:
		return nil
	}
}
