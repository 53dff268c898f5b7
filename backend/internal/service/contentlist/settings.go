// Package contentlist 实现内容列表的查询、单元格渲染、设置持久化与表格状态机。
package contentlist

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultPageSize 是未配置时的每页条数。
	DefaultPageSize = 10
	// MaxPageSize 是允许的最大每页条数。
	MaxPageSize = 100

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// ErrInvalidMutation 表示无法识别的设置变更。
var ErrInvalidMutation = errors.New("invalid table settings mutation")

// DateRange 表示日期筛选区间，格式为 YYYY-MM-DD，任一端可为空。
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// IsZero 判断区间是否为空。
func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == ""
}

// SortState 描述排序列与方向。
type SortState struct {
	Column    string `json:"column,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Settings 是按 pageName 持久化的完整列表设置。
type Settings struct {
	ColumnVisibility map[string]bool      `json:"column_visibility"`
	Filters          map[string]string    `json:"filters"`
	DateRanges       map[string]DateRange `json:"date_ranges"`
	Sort             SortState            `json:"sort"`
	PageSize         int                  `json:"page_size"`
	Search           string               `json:"search"`
	Page             int                  `json:"page"`
}

// DefaultSettings 返回新表格的初始设置。
func DefaultSettings() Settings {
	return Settings{
		ColumnVisibility: map[string]bool{},
		Filters:          map[string]string{},
		DateRanges:       map[string]DateRange{},
		PageSize:         DefaultPageSize,
		Page:             1,
	}
}

// Normalize 补齐空 map 并修正越界的分页参数。
func (s Settings) Normalize() Settings {
	out := s.clone()
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	if out.Page <= 0 {
		out.Page = 1
	}
	if out.Sort.Column == "" {
		out.Sort.Direction = ""
	} else if out.Sort.Direction != DirectionAsc {
		out.Sort.Direction = DirectionDesc
	}
	for column, r := range out.DateRanges {
		if r.IsZero() {
			delete(out.DateRanges, column)
		}
	}
	for column, v := range out.Filters {
		if v == "" {
			delete(out.Filters, column)
		}
	}
	return out
}

func (s Settings) clone() Settings {
	out := s
	out.ColumnVisibility = make(map[string]bool, len(s.ColumnVisibility))
	for k, v := range s.ColumnVisibility {
		out.ColumnVisibility[k] = v
	}
	out.Filters = make(map[string]string, len(s.Filters))
	for k, v := range s.Filters {
		out.Filters[k] = v
	}
	out.DateRanges = make(map[string]DateRange, len(s.DateRanges))
	for k, v := range s.DateRanges {
		out.DateRanges[k] = v
	}
	return out
}

// IsColumnVisible 未显式隐藏的列均视为可见。
func (s Settings) IsColumnVisible(column string) bool {
	visible, ok := s.ColumnVisibility[column]
	return !ok || visible
}

// WithSearch 修改搜索词并回到第一页。
func (s Settings) WithSearch(search string) Settings {
	out := s.clone()
	out.Search = strings.TrimSpace(search)
	out.Page = 1
	return out
}

// WithFilter 设置列筛选值，空值等同于清除，并回到第一页。
func (s Settings) WithFilter(column, value string) Settings {
	out := s.clone()
	if value == "" {
		delete(out.Filters, column)
	} else {
		out.Filters[column] = value
	}
	out.Page = 1
	return out
}

// ClearFilter 移除列筛选及其日期区间，并回到第一页。
func (s Settings) ClearFilter(column string) Settings {
	out := s.clone()
	delete(out.Filters, column)
	delete(out.DateRanges, column)
	out.Page = 1
	return out
}

// WithDateRange 设置日期区间筛选并回到第一页。
func (s Settings) WithDateRange(column string, r DateRange) Settings {
	out := s.clone()
	if r.IsZero() {
		delete(out.DateRanges, column)
	} else {
		out.DateRanges[column] = r
	}
	out.Page = 1
	return out
}

// WithSort 设置排序并回到第一页，空列名表示取消排序。
func (s Settings) WithSort(column, direction string) Settings {
	out := s.clone()
	out.Sort = SortState{Column: column, Direction: direction}
	out.Page = 1
	return out.Normalize()
}

// WithPageSize 修改每页条数并回到第一页。
func (s Settings) WithPageSize(size int) Settings {
	out := s.clone()
	out.PageSize = size
	out.Page = 1
	return out.Normalize()
}

// WithPage 只修改页码，其余设置保持不变。
func (s Settings) WithPage(page int) Settings {
	out := s.clone()
	out.Page = page
	return out.Normalize()
}

// WithColumnVisibility 修改列可见性，不影响分页。
func (s Settings) WithColumnVisibility(column string, visible bool) Settings {
	out := s.clone()
	out.ColumnVisibility[column] = visible
	return out
}

// MutationKind 枚举可通过接口提交的设置变更。
type MutationKind string

const (
	MutationSearch           MutationKind = "search"
	MutationFilter           MutationKind = "filter"
	MutationClearFilter      MutationKind = "clear_filter"
	MutationDateRange        MutationKind = "date_range"
	MutationSort             MutationKind = "sort"
	MutationPage             MutationKind = "page"
	MutationPageSize         MutationKind = "page_size"
	MutationColumnVisibility MutationKind = "column_visibility"
	MutationReset            MutationKind = "reset"

	// 以下变更只作用于行选择，不改动设置也不触发检索。
	MutationSelect         MutationKind = "select"
	MutationDeselect       MutationKind = "deselect"
	MutationToggleSelect   MutationKind = "toggle_select"
	MutationSelectAll      MutationKind = "select_all"
	MutationClearSelection MutationKind = "clear_selection"
)

// selects 判断变更是否只涉及行选择。
func (k MutationKind) selects() bool {
	switch k {
	case MutationSelect, MutationDeselect, MutationToggleSelect, MutationSelectAll, MutationClearSelection:
		return true
	}
	return false
}

// Mutation 是一次设置变更。
type Mutation struct {
	Kind      MutationKind `json:"kind"`
	Column    string       `json:"column,omitempty"`
	Value     string       `json:"value,omitempty"`
	From      string       `json:"from,omitempty"`
	To        string       `json:"to,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Page      int          `json:"page,omitempty"`
	PageSize  int          `json:"page_size,omitempty"`
	Visible   *bool        `json:"visible,omitempty"`
	Key       string       `json:"key,omitempty"` // 行选择键，默认为内容 id。
}

// Apply 按变更类型更新设置。
func (s Settings) Apply(m Mutation) (Settings, error) {
	switch m.Kind {
	case MutationSearch:
		return s.WithSearch(m.Value), nil
	case MutationFilter:
		if m.Column == "" {
			return s, fmt.Errorf("%w: filter requires column", ErrInvalidMutation)
		}
		return s.WithFilter(m.Column, m.Value), nil
	case MutationClearFilter:
		if m.Column == "" {
			return s, fmt.Errorf("%w: clear_filter requires column", ErrInvalidMutation)
		}
		return s.ClearFilter(m.Column), nil
	case MutationDateRange:
		if m.Column == "" {
			return s, fmt.Errorf("%w: date_range requires column", ErrInvalidMutation)
		}
		return s.WithDateRange(m.Column, DateRange{From: m.From, To: m.To}), nil
	case MutationSort:
		return s.WithSort(m.Column, m.Direction), nil
	case MutationPage:
		return s.WithPage(m.Page), nil
	case MutationPageSize:
		return s.WithPageSize(m.PageSize), nil
	case MutationColumnVisibility:
		if m.Column == "" || m.Visible == nil {
			return s, fmt.Errorf("%w: column_visibility requires column and visible", ErrInvalidMutation)
		}
		return s.WithColumnVisibility(m.Column, *m.Visible), nil
	case MutationReset:
		return DefaultSettings(), nil
	default:
		return s, fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
	}
}
