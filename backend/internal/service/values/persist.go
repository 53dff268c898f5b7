package values

import "headless-cms/backend/internal/domain/schema"

// ToPersisted 将规范形态转换回落库形态：媒体/关联为标识数组，通用重复字段解包为原始值列表，
// 非重复分组为单个对象，重复分组为对象列表，其余类型保持不变。
// 不属于当前字段集合的键会被丢弃。
func ToPersisted(state State, tree []schema.Field) map[string]any {
	out := make(map[string]any, len(tree))
	for _, field := range tree {
		value, ok := state[field.Name]
		if !ok {
			value = DefaultFor(field)
		}
		out[field.Name] = persistField(field, value)
	}
	return out
}

func persistField(field schema.Field, value any) any {
	switch field.Type {
	case schema.TypeMedia:
		return NormalizeMedia(field, value)
	case schema.TypeGroup:
		instances := groupInstances(value)
		for i, instance := range instances {
			instances[i] = persistInstance(field, instance)
		}
		if field.IsRepeatable() {
			list := make([]any, len(instances))
			for i, instance := range instances {
				list[i] = instance
			}
			return list
		}
		if len(instances) == 0 {
			return nil
		}
		return instances[0]
	}
	if field.IsRepeatable() {
		items, ok := value.([]any)
		if !ok {
			if value == nil {
				return []any{}
			}
			return []any{Unwrap(value)}
		}
		list := make([]any, 0, len(items))
		for _, item := range items {
			list = append(list, persistScalar(field, Unwrap(item)))
		}
		return list
	}
	return persistScalar(field, value)
}

func persistScalar(field schema.Field, value any) any {
	switch field.Type {
	case schema.TypeRelation:
		return IDList(value)
	case schema.TypeBoolean:
		return CoerceBool(value)
	case schema.TypeEnumeration:
		if field.IsMultipleEnumeration() {
			return StringList(value)
		}
		return value
	case schema.TypeMedia:
		return NormalizeMedia(field, value)
	case schema.TypeText, schema.TypeLongText, schema.TypeEmail, schema.TypeSlug,
		schema.TypePassword, schema.TypeNumber, schema.TypeColor, schema.TypeDate,
		schema.TypeTime, schema.TypeRichText, schema.TypeJSON, schema.TypeGroup:
		return value
	default:
		return value
	}
}

func groupInstances(value any) []map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if instance, ok := item.(map[string]any); ok {
				out = append(out, instance)
			}
		}
		return out
	case []map[string]any:
		return append([]map[string]any{}, v...)
	default:
		return nil
	}
}

func persistInstance(group schema.Field, instance map[string]any) map[string]any {
	out := make(map[string]any, len(group.Children))
	for _, child := range group.Children {
		value, ok := instance[child.Name]
		if !ok {
			value = childDefault(child)
		}
		out[child.Name] = persistScalar(child, value)
	}
	if len(group.Children) == 0 {
		for k, v := range instance {
			out[k] = v
		}
	}
	return out
}
