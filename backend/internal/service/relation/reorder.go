package relation

import (
	"errors"
	"fmt"

	"headless-cms/backend/internal/service/values"
)

// ErrNotPermutation 表示新的顺序与原有标识集合不一致。
var ErrNotPermutation = errors.New("relation order must be a permutation of current ids")

// Reorder 校验 next 是 current 的一个排列，返回规范化后的新顺序。
func Reorder(current, next []any) ([]any, error) {
	ordered := values.IDList(next)
	if len(ordered) != len(current) {
		return nil, fmt.Errorf("%w: got %d ids, want %d", ErrNotPermutation, len(ordered), len(current))
	}
	counts := make(map[string]int, len(current))
	for _, id := range current {
		counts[values.IDKey(id)]++
	}
	for _, id := range ordered {
		key := values.IDKey(id)
		if counts[key] == 0 {
			return nil, fmt.Errorf("%w: unexpected id %v", ErrNotPermutation, id)
		}
		counts[key]--
	}
	return ordered, nil
}
