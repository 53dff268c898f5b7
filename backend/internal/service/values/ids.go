package values

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeID 将资源/内容标识统一为 int64 或 string，无法识别时返回 nil。
// 对象形态取其 id 字段。
func NormalizeID(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case map[string]any:
		return NormalizeID(v["id"])
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return floatID(float64(v))
	case float64:
		return floatID(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return v.String()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		return trimmed
	default:
		return nil
	}
}

func floatID(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if v == math.Trunc(v) {
		return int64(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IDList 将任意值转换为标识数组，丢弃无法识别的元素，非数组值按单元素处理。
func IDList(raw any) []any {
	ids := []any{}
	switch v := raw.(type) {
	case nil:
		return ids
	case []any:
		for _, item := range v {
			if id := NormalizeID(item); id != nil {
				ids = append(ids, id)
			}
		}
	case []int64:
		for _, item := range v {
			ids = append(ids, item)
		}
	case []uint:
		for _, item := range v {
			ids = append(ids, int64(item))
		}
	case []string:
		for _, item := range v {
			if id := NormalizeID(item); id != nil {
				ids = append(ids, id)
			}
		}
	default:
		if id := NormalizeID(v); id != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// IDKey 返回标识的比较键，int64(7)、7.0 与 "7" 视为同一标识。
func IDKey(raw any) string {
	switch v := NormalizeID(raw).(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return ""
	}
}

// UintIDs 提取可以作为数据库主键的标识，忽略其它形态。
func UintIDs(raw any) []uint {
	list := IDList(raw)
	out := make([]uint, 0, len(list))
	for _, id := range list {
		switch v := id.(type) {
		case int64:
			if v > 0 {
				out = append(out, uint(v))
			}
		case string:
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				out = append(out, uint(n))
			}
		}
	}
	return out
}
