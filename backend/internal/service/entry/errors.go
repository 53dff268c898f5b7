package entry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEntryNotFound 表示内容不存在或已被删除。
	ErrEntryNotFound = errors.New("entry not found")
	// ErrProjectNotFound 表示项目不存在。
	ErrProjectNotFound = errors.New("project not found")
	// ErrCollectionNotFound 表示集合不存在或不属于该项目。
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrSingletonViolation 表示单例集合在该语言下已有未删除的内容。
	ErrSingletonViolation = errors.New("singleton collection already has an entry for this locale")
	// ErrInvalidLocale 表示语言不在项目配置中。
	ErrInvalidLocale = errors.New("locale is not configured for this project")
	// ErrInvalidStatus 表示状态不是 draft/published。
	ErrInvalidStatus = errors.New("invalid entry status")
	// ErrForbidden 表示当前操作者没有对应能力。
	ErrForbidden = errors.New("action not permitted")
	// ErrConfirmationRequired 表示危险操作缺少确认。
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrInvalidPassword 表示二次确认的密码不正确。
	ErrInvalidPassword = errors.New("invalid password")
	// ErrTranslationConflict 表示翻译分组中该语言已被其它内容占用或语言相同。
	ErrTranslationConflict = errors.New("translation conflict")
	// ErrNothingSelected 表示批量操作没有选中任何内容。
	ErrNothingSelected = errors.New("no entries selected")
)

// ValidationError 携带按字段键索引的校验信息，分组子字段的键形如 group.0.child。
type ValidationError struct {
	Fields map[string]string
}

// Error 实现 error。
func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

func (e *ValidationError) add(key, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[key]; exists {
		return
	}
	e.Fields[key] = message
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
