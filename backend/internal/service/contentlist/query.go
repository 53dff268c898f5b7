package contentlist

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	filterPrefix = "filter_"
	fromSuffix   = "_from"
	toSuffix     = "_to"
)

// Query 是一次列表检索的完整参数，既用于内部调用也可编码为 URL 参数。
type Query struct {
	Locale     string               `json:"locale,omitempty"`
	Status     string               `json:"status,omitempty"`
	Trashed    bool                 `json:"trashed,omitempty"`
	Search     string               `json:"search,omitempty"`
	Filters    map[string]string    `json:"filters,omitempty"`
	DateRanges map[string]DateRange `json:"date_ranges,omitempty"`
	Sort       string               `json:"sort,omitempty"`
	Direction  string               `json:"direction,omitempty"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
}

// Query 将表格设置转换为检索参数。
func (s Settings) Query() Query {
	n := s.Normalize()
	return Query{
		Search:     n.Search,
		Filters:    n.Filters,
		DateRanges: n.DateRanges,
		Sort:       n.Sort.Column,
		Direction:  n.Sort.Direction,
		Page:       n.Page,
		PerPage:    n.PageSize,
	}
}

// Encode 生成 URL 参数：列筛选为 filter_<列>，日期区间为 filter_<列>_from / filter_<列>_to。
func (q Query) Encode() url.Values {
	values := url.Values{}
	if q.Locale != "" {
		values.Set("locale", q.Locale)
	}
	if q.Status != "" {
		values.Set("status", q.Status)
	}
	if q.Trashed {
		values.Set("trashed", "1")
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	for column, value := range q.Filters {
		if value != "" {
			values.Set(filterPrefix+column, value)
		}
	}
	for column, r := range q.DateRanges {
		if r.From != "" {
			values.Set(filterPrefix+column+fromSuffix, r.From)
		}
		if r.To != "" {
			values.Set(filterPrefix+column+toSuffix, r.To)
		}
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
		direction := q.Direction
		if direction == "" {
			direction = DirectionDesc
		}
		values.Set("direction", direction)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return values
}

// ParseQuery 解析 URL 参数。以 _from/_to 结尾的筛选键一律视为日期区间。
func ParseQuery(values url.Values) Query {
	q := Query{
		Locale:     strings.TrimSpace(values.Get("locale")),
		Status:     strings.TrimSpace(values.Get("status")),
		Trashed:    parseBool(values.Get("trashed")),
		Search:     strings.TrimSpace(values.Get("search")),
		Filters:    map[string]string{},
		DateRanges: map[string]DateRange{},
		Sort:       strings.TrimSpace(values.Get("sort")),
		Direction:  strings.ToLower(strings.TrimSpace(values.Get("direction"))),
		Page:       parsePositive(values.Get("page"), 1),
		PerPage:    parsePositive(values.Get("per_page"), DefaultPageSize),
	}
	if q.PerPage > MaxPageSize {
		q.PerPage = MaxPageSize
	}
	if q.Sort != "" && q.Direction != DirectionAsc {
		q.Direction = DirectionDesc
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.HasPrefix(key, filterPrefix) {
			continue
		}
		value := strings.TrimSpace(values.Get(key))
		if value == "" {
			continue
		}
		column := strings.TrimPrefix(key, filterPrefix)
		switch {
		case strings.HasSuffix(column, fromSuffix):
			name := strings.TrimSuffix(column, fromSuffix)
			r := q.DateRanges[name]
			r.From = value
			q.DateRanges[name] = r
		case strings.HasSuffix(column, toSuffix):
			name := strings.TrimSuffix(column, toSuffix)
			r := q.DateRanges[name]
			r.To = value
			q.DateRanges[name] = r
		default:
			if column != "" {
				q.Filters[column] = value
			}
		}
	}
	return q
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
