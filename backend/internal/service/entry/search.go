package entry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/values"
)

// Search 执行列表检索：语言、状态、回收站下推到 SQL，字段值的筛选、搜索、排序与分页在内存中完成。
func (s *Service) Search(ctx context.Context, scope Scope, q contentlist.Query) (contentlist.Page, error) {
	_, collection, tree, err := s.Context(ctx, scope)
	if err != nil {
		return contentlist.Page{}, err
	}
	status := q.Status
	if status != "" {
		if status, err = normalizeStatus(status); err != nil {
			return contentlist.Page{}, err
		}
	}
	rows, err := s.entries.List(ctx, repository.EntryFilter{
		ProjectID:    scope.ProjectID,
		CollectionID: collection.ID,
		Locale:       q.Locale,
		Status:       status,
		OnlyTrashed:  q.Trashed,
	})
	if err != nil {
		return contentlist.Page{}, fmt.Errorf("list entries: %w", err)
	}

	fields := make(map[string]schema.Field, len(tree))
	for _, f := range tree {
		fields[f.Name] = f
	}

	matched := make([]content.Entry, 0, len(rows))
	for _, row := range rows {
		data := row.Values()
		if q.Search != "" && !matchesSearch(row, data, tree, q.Search) {
			continue
		}
		if !matchesFilters(row, data, fields, q.Filters) {
			continue
		}
		if !matchesDateRanges(row, data, fields, q.DateRanges) {
			continue
		}
		matched = append(matched, row)
	}

	if q.Sort != "" {
		sortEntries(matched, fields, q.Sort, q.Direction)
	}

	pagination, start, end := contentlist.Paginate(len(matched), q.Page, q.PerPage)
	return contentlist.Page{
		Entries:    matched[start:end],
		Pagination: pagination,
	}, nil
}

// Fetcher 返回绑定到集合的列表检索器。
func (s *Service) Fetcher(scope Scope) contentlist.Fetcher {
	return contentlist.FetcherFunc(func(ctx context.Context, q contentlist.Query) (contentlist.Page, error) {
		return s.Search(ctx, scope, q)
	})
}

func matchesSearch(row content.Entry, data map[string]any, tree []schema.Field, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	if strconv.FormatUint(uint64(row.ID), 10) == needle || strings.EqualFold(row.UUID, needle) {
		return true
	}
	for _, field := range tree {
		if !searchable(field) {
			continue
		}
		for _, text := range textsOf(field, data[field.Name]) {
			if strings.Contains(strings.ToLower(text), needle) {
				return true
			}
		}
	}
	return false
}

func searchable(field schema.Field) bool {
	switch field.Type {
	case schema.TypeText, schema.TypeLongText, schema.TypeEmail, schema.TypeSlug,
		schema.TypeRichText, schema.TypeEnumeration:
		return true
	case schema.TypePassword, schema.TypeNumber, schema.TypeBoolean, schema.TypeColor,
		schema.TypeDate, schema.TypeTime, schema.TypeMedia, schema.TypeRelation,
		schema.TypeJSON, schema.TypeGroup:
		return false
	default:
		return false
	}
}

func textsOf(field schema.Field, value any) []string {
	if field.Type == schema.TypeEnumeration {
		return values.StringList(value)
	}
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := values.Unwrap(item).(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// matchesFilters 按 filter_<列> 过滤，未知列被忽略。
func matchesFilters(row content.Entry, data map[string]any, fields map[string]schema.Field, filters map[string]string) bool {
	for column, want := range filters {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		switch column {
		case contentlist.ColumnStatus:
			if row.Status != want {
				return false
			}
			continue
		case contentlist.ColumnLocale:
			if row.Locale != want {
				return false
			}
			continue
		case contentlist.ColumnID:
			if strconv.FormatUint(uint64(row.ID), 10) != want {
				return false
			}
			continue
		}
		field, ok := fields[column]
		if !ok {
			continue
		}
		if !matchesField(field, data[column], want) {
			return false
		}
	}
	return true
}

func matchesField(field schema.Field, value any, want string) bool {
	switch field.Type {
	case schema.TypeEnumeration:
		for _, item := range values.StringList(value) {
			if item == want {
				return true
			}
		}
		return false
	case schema.TypeBoolean:
		parsed, err := strconv.ParseBool(want)
		if err != nil {
			return false
		}
		return values.CoerceBool(value) == parsed
	case schema.TypeNumber:
		got, ok1 := toFloat(value)
		target, err := strconv.ParseFloat(want, 64)
		return ok1 && err == nil && got == target
	case schema.TypeRelation, schema.TypeMedia:
		for _, id := range values.IDList(value) {
			if values.IDKey(id) == want {
				return true
			}
		}
		return false
	case schema.TypeDate:
		return strings.HasPrefix(stringOf(value), want)
	case schema.TypeText, schema.TypeLongText, schema.TypeEmail, schema.TypeSlug, schema.TypeColor,
		schema.TypeTime, schema.TypeRichText, schema.TypePassword, schema.TypeJSON, schema.TypeGroup:
		for _, text := range textsOf(field, value) {
			if strings.Contains(strings.ToLower(text), strings.ToLower(want)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchesDateRanges 按日期部分做闭区间比较，区间型日期字段取起始日期。
func matchesDateRanges(row content.Entry, data map[string]any, fields map[string]schema.Field, ranges map[string]contentlist.DateRange) bool {
	for column, r := range ranges {
		if r.IsZero() {
			continue
		}
		var day string
		switch column {
		case contentlist.ColumnCreatedAt:
			day = row.CreatedAt.Format(time.DateOnly)
		case contentlist.ColumnUpdatedAt:
			day = row.UpdatedAt.Format(time.DateOnly)
		case "published_at":
			if row.PublishedAt == nil {
				return false
			}
			day = row.PublishedAt.Format(time.DateOnly)
		default:
			if _, ok := fields[column]; !ok {
				continue
			}
			day = dayOf(stringOf(data[column]))
		}
		if day == "" {
			return false
		}
		if r.From != "" && day < dayOf(r.From) {
			return false
		}
		if r.To != "" && day > dayOf(r.To) {
			return false
		}
	}
	return true
}

func dayOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if before, _, found := strings.Cut(raw, " - "); found {
		raw = before
	}
	if t, ok := contentlist.ParseDate(raw); ok {
		return t.Format(time.DateOnly)
	}
	return ""
}

func sortEntries(entries []content.Entry, fields map[string]schema.Field, column, direction string) {
	desc := direction != contentlist.DirectionAsc
	field, isField := fields[column]
	key := func(e content.Entry) any {
		switch column {
		case contentlist.ColumnID:
			return float64(e.ID)
		case contentlist.ColumnCreatedAt:
			return e.CreatedAt
		case contentlist.ColumnUpdatedAt:
			return e.UpdatedAt
		case contentlist.ColumnStatus:
			return e.Status
		case contentlist.ColumnLocale:
			return e.Locale
		case "published_at":
			if e.PublishedAt == nil {
				return time.Time{}
			}
			return *e.PublishedAt
		}
		if !isField {
			return nil
		}
		return sortKey(field, e.Values()[column])
	}
	slices.SortStableFunc(entries, func(a, b content.Entry) int {
		c := compareKeys(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
}

func sortKey(field schema.Field, value any) any {
	switch field.Type {
	case schema.TypeNumber:
		if f, ok := toFloat(value); ok {
			return f
		}
		return nil
	case schema.TypeBoolean:
		if values.CoerceBool(value) {
			return float64(1)
		}
		return float64(0)
	case schema.TypeDate:
		if t, ok := contentlist.ParseDate(strings.TrimSpace(stringOf(value))); ok {
			return t
		}
		day := dayOf(stringOf(value))
		if t, ok := contentlist.ParseDate(day); ok {
			return t
		}
		return nil
	default:
		s := strings.ToLower(stringOf(value))
		if s == "" {
			return nil
		}
		return s
	}
}

// compareKeys 空值排在最前，类型不同时按字符串比较。
func compareKeys(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch va := a.(type) {
	case float64:
		if vb, ok := b.(float64); ok {
			return cmp.Compare(va, vb)
		}
	case string:
		if vb, ok := b.(string); ok {
			return cmp.Compare(va, vb)
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
