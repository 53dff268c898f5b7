package entry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/repository"
	"headless-cms/backend/internal/service/values"
)

// validate 对落库形态的值执行 required / unique / charcount 校验。
func (s *Service) validate(ctx context.Context, collectionID uint, locale string, selfID uint, data map[string]any, tree []schema.Field) error {
	verr := &ValidationError{}
	for _, field := range tree {
		value := data[field.Name]
		switch {
		case field.IsGroup():
			validateGroup(verr, field, value)
		case field.IsRepeatable():
			validateRepeatable(verr, field, value)
		default:
			validateValue(verr, field.Name, field, value)
		}
	}

	if err := s.validateUnique(ctx, verr, collectionID, locale, selfID, data, tree); err != nil {
		return err
	}
	if verr.empty() {
		return nil
	}
	return verr
}

func validateValue(verr *ValidationError, key string, field schema.Field, value any) {
	if field.Validations.IsRequired() && IsEmptyValue(field, value) {
		verr.add(key, requiredMessage(field))
		return
	}
	validateCharCount(verr, key, field, value)
}

func validateRepeatable(verr *ValidationError, field schema.Field, value any) {
	items, _ := value.([]any)
	if field.Validations.IsRequired() {
		present := false
		for _, item := range items {
			if !IsEmptyValue(field, item) {
				present = true
				break
			}
		}
		if !present {
			verr.add(field.Name, requiredMessage(field))
			return
		}
	}
	for i, item := range items {
		validateCharCount(verr, field.Name+"."+strconv.Itoa(i), field, item)
	}
}

func validateGroup(verr *ValidationError, group schema.Field, value any) {
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
	if group.Validations.IsRequired() && len(instances) == 0 {
		verr.add(group.Name, requiredMessage(group))
		return
	}
	for i, instance := range instances {
		for _, child := range group.Children {
			key := fmt.Sprintf("%s.%d.%s", group.Name, i, child.Name)
			validateValue(verr, key, child, instance[child.Name])
		}
	}
}

func validateCharCount(verr *ValidationError, key string, field schema.Field, value any) {
	rule := field.Validations.CharCount
	if rule == nil || !rule.Status {
		return
	}
	text, ok := value.(string)
	if !ok || text == "" {
		return
	}
	n := utf8.RuneCountInString(text)
	tooShort := rule.Min != nil && n < *rule.Min && rule.Type != schema.CharCountMax
	tooLong := rule.Max != nil && n > *rule.Max && rule.Type != schema.CharCountMin
	if !tooShort && !tooLong {
		return
	}
	if rule.Message != "" {
		verr.add(key, rule.Message)
		return
	}
	label := fieldLabel(field)
	switch {
	case rule.Min != nil && rule.Max != nil && rule.Type != schema.CharCountMin && rule.Type != schema.CharCountMax:
		verr.add(key, fmt.Sprintf("The %s must be between %d and %d characters.", label, *rule.Min, *rule.Max))
	case tooShort:
		verr.add(key, fmt.Sprintf("The %s must be at least %d characters.", label, *rule.Min))
	default:
		verr.add(key, fmt.Sprintf("The %s may not be greater than %d characters.", label, *rule.Max))
	}
}

// validateUnique 在同集合同语言的未删除内容中查重，排除自身。
func (s *Service) validateUnique(ctx context.Context, verr *ValidationError, collectionID uint, locale string, selfID uint, data map[string]any, tree []schema.Field) error {
	var uniqueFields []schema.Field
	for _, field := range tree {
		if field.Validations.IsUnique() && !field.IsGroup() && !field.IsRepeatable() {
			if _, failed := verr.Fields[field.Name]; failed {
				continue
			}
			if IsEmptyValue(field, data[field.Name]) {
				continue
			}
			uniqueFields = append(uniqueFields, field)
		}
	}
	if len(uniqueFields) == 0 {
		return nil
	}

	others, err := s.entries.List(ctx, repository.EntryFilter{CollectionID: collectionID, Locale: locale})
	if err != nil {
		return fmt.Errorf("load entries for unique check: %w", err)
	}
	for _, field := range uniqueFields {
		want := uniqueKey(data[field.Name])
		for _, other := range others {
			if other.ID == selfID {
				continue
			}
			if uniqueKey(other.Values()[field.Name]) == want {
				message := fmt.Sprintf("The %s has already been taken.", fieldLabel(field))
				if field.Validations.Unique.Message != "" {
					message = field.Validations.Unique.Message
				}
				verr.add(field.Name, message)
				break
			}
		}
	}
	return nil
}

// IsEmptyValue 判断值对必填校验而言是否为空，布尔 false 视为已填写。
func IsEmptyValue(field schema.Field, value any) bool {
	value = values.Unwrap(value)
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case bool:
		return false
	default:
		return false
	}
}

func requiredMessage(field schema.Field) string {
	if field.Validations.Required != nil && field.Validations.Required.Message != "" {
		return field.Validations.Required.Message
	}
	return fmt.Sprintf("The %s field is required.", fieldLabel(field))
}

func fieldLabel(field schema.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func uniqueKey(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
