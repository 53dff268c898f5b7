// Package values 负责字段值在持久化形态与表单规范形态之间的双向转换。
//
// 规范形态约定：媒体字段永远是标识数组（单选时长度为 0 或 1）；
// 关联字段是有序的标识数组；非重复分组是只含一个实例的数组；
// 通用重复字段是 {value} 包装对象数组；json 字段缺省为 nil。
package values

import (
	"encoding/json"
	"strings"

	"headless-cms/backend/internal/domain/schema"
)

// State 是按字段名索引的表单值。
type State map[string]any

// Clone 深拷贝表单值，避免调用方共享内部切片与对象。
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// NormalizeForEdit 将原始值（持久化形态或规范形态均可）转换为规范形态。
// 缺失字段使用 DefaultFor 的缺省值，不会因为数据格式异常而失败。
func NormalizeForEdit(raw map[string]any, tree []schema.Field) State {
	state := make(State, len(tree))
	for _, field := range tree {
		value, ok := raw[field.Name]
		if !ok {
			state[field.Name] = DefaultFor(field)
			continue
		}
		state[field.Name] = normalizeField(field, value)
	}
	return state
}

// NormalizeValue 对单个字段值做规范化，供表单引擎处理外部输入。
func NormalizeValue(field schema.Field, raw any) any {
	return normalizeField(field, raw)
}

func normalizeField(field schema.Field, raw any) any {
	switch field.Type {
	case schema.TypeMedia:
		return NormalizeMedia(field, raw)
	case schema.TypeGroup:
		if field.IsRepeatable() {
			return normalizeGroupInstances(field, raw)
		}
		return normalizeSingleGroup(field, raw)
	}
	if field.IsRepeatable() {
		return normalizeRepeatable(field, raw)
	}
	return normalizeScalar(field, raw)
}

// normalizeScalar 覆盖全部非分组字段类型，新增类型必须在这里补齐分支。
func normalizeScalar(field schema.Field, raw any) any {
	switch field.Type {
	case schema.TypeText, schema.TypeLongText, schema.TypeEmail, schema.TypeSlug,
		schema.TypePassword, schema.TypeColor, schema.TypeTime, schema.TypeRichText:
		if raw == nil {
			return ""
		}
		return raw
	case schema.TypeDate:
		if raw == nil {
			return ""
		}
		return raw
	case schema.TypeNumber:
		if raw == nil {
			return ""
		}
		return raw
	case schema.TypeJSON:
		return raw
	case schema.TypeBoolean:
		return CoerceBool(raw)
	case schema.TypeEnumeration:
		if field.IsMultipleEnumeration() {
			return StringList(raw)
		}
		return singleEnumeration(raw)
	case schema.TypeMedia:
		return NormalizeMedia(field, raw)
	case schema.TypeRelation:
		return IDList(raw)
	case schema.TypeGroup:
		return normalizeSingleGroup(field, raw)
	default:
		if raw == nil {
			return ""
		}
		return raw
	}
}

// NormalizeMedia 按媒体规则规范化：多选（配置多选或原值已是数组）时逐个取标识并丢弃空值；
// 单选时包装唯一标识，结果始终是数组。
func NormalizeMedia(field schema.Field, raw any) []any {
	if _, isList := raw.([]any); isList || field.AllowsMultipleMedia() {
		return IDList(raw)
	}
	if id := NormalizeID(raw); id != nil {
		return []any{id}
	}
	return []any{}
}

func normalizeGroupInstances(field schema.Field, raw any) []any {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return []any{}
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		instance, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, normalizeInstance(field, instance))
	}
	return out
}

func normalizeSingleGroup(field schema.Field, raw any) []any {
	switch v := raw.(type) {
	case map[string]any:
		return []any{normalizeInstance(field, v)}
	case []any:
		for _, item := range v {
			if instance, ok := item.(map[string]any); ok {
				return []any{normalizeInstance(field, instance)}
			}
		}
	}
	return []any{defaultInstance(field)}
}

// normalizeInstance 只转换媒体子字段，其余子字段原样保留，缺失的子字段补默认值。
func normalizeInstance(group schema.Field, instance map[string]any) map[string]any {
	out := make(map[string]any, len(instance)+len(group.Children))
	for k, v := range instance {
		out[k] = v
	}
	for _, child := range group.Children {
		value, ok := instance[child.Name]
		if !ok {
			out[child.Name] = childDefault(child)
			continue
		}
		if child.Type == schema.TypeMedia {
			out[child.Name] = NormalizeMedia(child, value)
		}
	}
	return out
}

func normalizeRepeatable(field schema.Field, raw any) []any {
	switch v := raw.(type) {
	case nil:
		return []any{Wrap(nil)}
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if wrapper, ok := asWrapper(item); ok {
				out = append(out, Wrap(wrapper))
				continue
			}
			out = append(out, Wrap(item))
		}
		return out
	default:
		if wrapper, ok := asWrapper(v); ok {
			return []any{Wrap(wrapper)}
		}
		return []any{Wrap(v)}
	}
}

// Wrap 构造通用重复字段的 {value} 包装对象。
func Wrap(value any) map[string]any {
	return map[string]any{"value": value}
}

// Unwrap 读取包装对象中的值，非包装对象原样返回。
func Unwrap(item any) any {
	if value, ok := asWrapper(item); ok {
		return value
	}
	return item
}

func asWrapper(item any) (any, bool) {
	obj, ok := item.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, false
	}
	value, ok := obj["value"]
	return value, ok
}

// CoerceBool 宽松地将常见真值表示转换为布尔值。
func CoerceBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

// StringList 宽松解析多选枚举值：数组、JSON 字符串数组或单个字符串。
func StringList(raw any) []string {
	out := []string{}
	switch v := raw.(type) {
	case nil:
		return out
	case []string:
		return append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return out
		}
		if strings.HasPrefix(trimmed, "[") {
			var parsed []string
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return append(out, parsed...)
			}
		}
		return append(out, v)
	default:
		return out
	}
}

func singleEnumeration(raw any) any {
	switch v := raw.(type) {
	case nil:
		return ""
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				return s
			}
		}
		return ""
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string{}, value...)
	default:
		return value
	}
}
