package contentlist

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/service/values"
)

// TruncateLength 是文本单元格的最大展示字符数。
const TruncateLength = 30

// CellKind 标记单元格的渲染方式。
type CellKind string

const (
	CellText     CellKind = "text"
	CellDate     CellKind = "date"
	CellBoolean  CellKind = "boolean"
	CellList     CellKind = "list"
	CellMedia    CellKind = "media"
	CellRelation CellKind = "relation"
	CellGroup    CellKind = "group"
	CellEmpty    CellKind = "empty"
)

// MediaThumb 是媒体缩略图引用。
type MediaThumb struct {
	ID           any    `json:"id"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Cell 是单元格的渲染结果。
type Cell struct {
	Kind  CellKind     `json:"kind"`
	Text  string       `json:"text"`
	Items []string     `json:"items,omitempty"`
	Count int          `json:"count,omitempty"`
	Media []MediaThumb `json:"media,omitempty"`
	IDs   []any        `json:"ids,omitempty"` // 关联/分组详情按需加载时使用
	Bool  *bool        `json:"bool,omitempty"`
}

// RenderOptions 渲染时依赖的外部信息。
type RenderOptions struct {
	// ThumbnailURL 由资源服务提供，为空时不输出缩略图地址。
	ThumbnailURL func(id any) string
	Location     *time.Location
}

// RenderCell 按字段类型渲染单元格，新增字段类型必须在这里补齐分支。
func RenderCell(field schema.Field, value any, opts RenderOptions) Cell {
	if field.IsRepeatable() && field.Type != schema.TypeGroup && field.Type != schema.TypeMedia {
		return renderRepeatable(field, value, opts)
	}
	switch field.Type {
	case schema.TypeText, schema.TypeEmail, schema.TypeSlug, schema.TypeColor, schema.TypeTime:
		return textCell(stringify(value))
	case schema.TypeLongText:
		return textCell(stringify(value))
	case schema.TypeRichText:
		return textCell(stripTags(stringify(value)))
	case schema.TypePassword:
		if stringify(value) == "" {
			return Cell{Kind: CellEmpty}
		}
		return Cell{Kind: CellText, Text: "******"}
	case schema.TypeNumber:
		return textCell(stringify(value))
	case schema.TypeJSON:
		if value == nil {
			return Cell{Kind: CellEmpty}
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return Cell{Kind: CellEmpty}
		}
		return textCell(string(raw))
	case schema.TypeBoolean:
		b := values.CoerceBool(value)
		text := "No"
		if b {
			text = "Yes"
		}
		return Cell{Kind: CellBoolean, Text: text, Bool: &b}
	case schema.TypeEnumeration:
		items := values.StringList(value)
		if len(items) == 0 {
			return Cell{Kind: CellEmpty}
		}
		return Cell{Kind: CellList, Text: strings.Join(items, ", "), Items: items}
	case schema.TypeDate:
		return dateCell(field, value, opts)
	case schema.TypeMedia:
		ids := values.NormalizeMedia(field, value)
		if len(ids) == 0 {
			return Cell{Kind: CellEmpty}
		}
		thumbs := make([]MediaThumb, 0, len(ids))
		for _, id := range ids {
			thumb := MediaThumb{ID: id}
			if opts.ThumbnailURL != nil {
				thumb.ThumbnailURL = opts.ThumbnailURL(id)
			}
			thumbs = append(thumbs, thumb)
		}
		return Cell{Kind: CellMedia, Count: len(ids), Media: thumbs, Text: countLabel(len(ids), "file")}
	case schema.TypeRelation:
		ids := values.IDList(value)
		if len(ids) == 0 {
			return Cell{Kind: CellEmpty}
		}
		return Cell{Kind: CellRelation, Count: len(ids), IDs: ids, Text: strconv.Itoa(len(ids))}
	case schema.TypeGroup:
		return groupCell(field, value, opts)
	default:
		return textCell(stringify(value))
	}
}

func renderRepeatable(field schema.Field, value any, opts RenderOptions) Cell {
	items, _ := value.([]any)
	parts := make([]string, 0, len(items))
	single := field
	single.Options.Repeatable = false
	for _, item := range items {
		cell := RenderCell(single, values.Unwrap(item), opts)
		if cell.Text != "" {
			parts = append(parts, cell.Text)
		}
	}
	if len(parts) == 0 {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellList, Items: parts, Count: len(parts), Text: truncate(strings.Join(parts, ", "))}
}

// groupCell 重复分组显示实例数；非重复分组预览第一个非空子字段。
func groupCell(field schema.Field, value any, opts RenderOptions) Cell {
	var instances []map[string]any
	switch v := value.(type) {
	case map[string]any:
		instances = []map[string]any{v}
	case []any:
		for _, item := range v {
			if instance, ok := item.(map[string]any); ok {
				instances = append(instances, instance)
			}
		}
	}
	if field.IsRepeatable() {
		return Cell{Kind: CellGroup, Count: len(instances), Text: countLabel(len(instances), "item")}
	}
	if len(instances) == 0 {
		return Cell{Kind: CellEmpty}
	}
	for _, child := range field.Children {
		cell := RenderCell(child, instances[0][child.Name], opts)
		if cell.Kind != CellEmpty && cell.Text != "" {
			cell.Kind = CellGroup
			cell.Count = 1
			return cell
		}
	}
	return Cell{Kind: CellGroup, Count: 1}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

const (
	dateDisplay     = "Jan 2, 2006"
	dateTimeDisplay = "Jan 2, 2006 15:04"
	rangeSeparator  = " - "
)

func dateCell(field schema.Field, value any, opts RenderOptions) Cell {
	raw := strings.TrimSpace(stringify(value))
	if raw == "" {
		return Cell{Kind: CellEmpty}
	}
	includeTime := field.Options.Date != nil && field.Options.Date.IncludeTime
	if field.IsDateRange() || strings.Contains(raw, rangeSeparator) {
		parts := strings.SplitN(raw, rangeSeparator, 2)
		formatted := make([]string, 0, len(parts))
		for _, part := range parts {
			formatted = append(formatted, FormatDate(part, includeTime, opts.Location))
		}
		return Cell{Kind: CellDate, Text: strings.Join(formatted, rangeSeparator)}
	}
	return Cell{Kind: CellDate, Text: FormatDate(raw, includeTime, opts.Location)}
}

// FormatDate 格式化 ISO 日期，无法解析时原样返回。
func FormatDate(raw string, includeTime bool, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	t, ok := ParseDate(raw)
	if !ok {
		return raw
	}
	if loc != nil {
		t = t.In(loc)
	}
	if includeTime {
		return t.Format(dateTimeDisplay)
	}
	return t.Format(dateDisplay)
}

// ParseDate 尝试以常见 ISO 格式解析日期。
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func textCell(text string) Cell {
	if text == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: truncate(text)}
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= TruncateLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:TruncateLength]) + "..."
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func countLabel(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// Row 是一行渲染结果。
type Row struct {
	ID                 uint            `json:"id"`
	UUID               string          `json:"uuid"`
	Locale             string          `json:"locale"`
	Status             string          `json:"status"`
	TranslationGroupID *string         `json:"translation_group_id"`
	Cells              map[string]Cell `json:"cells"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	PublishedAt        *time.Time      `json:"published_at,omitempty"`
}

// RenderRows 按列定义渲染整页内容，隐藏列不输出。
func RenderRows(entries []content.Entry, columns []Column, settings Settings, opts RenderOptions) []Row {
	rows := make([]Row, 0, len(entries))
	for _, entry := range entries {
		data := entry.Values()
		row := Row{
			ID:                 entry.ID,
			UUID:               entry.UUID,
			Locale:             entry.Locale,
			Status:             entry.Status,
			TranslationGroupID: entry.TranslationGroupID,
			Cells:              make(map[string]Cell, len(columns)),
			CreatedAt:          entry.CreatedAt,
			UpdatedAt:          entry.UpdatedAt,
			PublishedAt:        entry.PublishedAt,
		}
		for _, column := range columns {
			if !settings.IsColumnVisible(column.AccessorKey) {
				continue
			}
			row.Cells[column.AccessorKey] = renderColumn(column, entry, data, opts)
		}
		rows = append(rows, row)
	}
	return rows
}

func renderColumn(column Column, entry content.Entry, data map[string]any, opts RenderOptions) Cell {
	if column.Field != nil {
		return RenderCell(*column.Field, data[column.AccessorKey], opts)
	}
	switch column.AccessorKey {
	case ColumnStatus:
		return Cell{Kind: CellText, Text: entry.Status}
	case ColumnLocale:
		return Cell{Kind: CellText, Text: entry.Locale}
	case ColumnCreatedAt:
		return Cell{Kind: CellDate, Text: FormatDate(entry.CreatedAt.Format(time.RFC3339), true, opts.Location)}
	case ColumnUpdatedAt:
		return Cell{Kind: CellDate, Text: FormatDate(entry.UpdatedAt.Format(time.RFC3339), true, opts.Location)}
	case ColumnID:
		return Cell{Kind: CellText, Text: strconv.FormatUint(uint64(entry.ID), 10)}
	default:
		return Cell{Kind: CellEmpty}
	}
}
