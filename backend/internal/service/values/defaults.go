package values

import "headless-cms/backend/internal/domain/schema"

// DefaultsFor 为新建内容生成全部顶层字段的默认值。
func DefaultsFor(tree []schema.Field) State {
	state := make(State, len(tree))
	for _, field := range tree {
		state[field.Name] = DefaultFor(field)
	}
	return state
}

// DefaultFor 返回单个字段的默认值，任何已知类型都不会返回“未定义”。
func DefaultFor(field schema.Field) any {
	if field.Type == schema.TypeGroup {
		if field.IsRepeatable() {
			return []any{}
		}
		return []any{defaultInstance(field)}
	}
	if field.IsRepeatable() && field.Type != schema.TypeMedia {
		return []any{Wrap(nil)}
	}
	return typeDefault(field)
}

func defaultInstance(group schema.Field) map[string]any {
	instance := make(map[string]any, len(group.Children))
	for _, child := range group.Children {
		instance[child.Name] = childDefault(child)
	}
	return instance
}

// childDefault 分组子字段不考虑 repeatable，只按类型给出空值。
func childDefault(child schema.Field) any {
	return typeDefault(child)
}

func typeDefault(field schema.Field) any {
	switch field.Type {
	case schema.TypeBoolean:
		return false
	case schema.TypeEnumeration:
		if field.IsMultipleEnumeration() {
			return []string{}
		}
		return ""
	case schema.TypeMedia, schema.TypeRelation:
		return []any{}
	case schema.TypeJSON:
		return nil
	case schema.TypeGroup:
		return []any{}
	case schema.TypeText, schema.TypeLongText, schema.TypeEmail, schema.TypeSlug,
		schema.TypePassword, schema.TypeNumber, schema.TypeColor, schema.TypeDate,
		schema.TypeTime, schema.TypeRichText:
		return ""
	default:
		return ""
	}
}
