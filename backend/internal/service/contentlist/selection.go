package contentlist

import (
	"strconv"

	"headless-cms/backend/internal/domain/content"
)

// KeyFunc 提取行的选择键。
type KeyFunc func(content.Entry) string

// EntryIDKey 是默认的选择键，使用内容 id。
func EntryIDKey(e content.Entry) string {
	return strconv.FormatUint(uint64(e.ID), 10)
}

// Selection 记录按键选中的行，筛选与排序变化不会清空选择。
type Selection struct {
	key      KeyFunc
	selected map[string]struct{}
	order    []string
}

// NewSelection 构造选择集合，key 为 nil 时使用 EntryIDKey。
func NewSelection(key KeyFunc) *Selection {
	if key == nil {
		key = EntryIDKey
	}
	return &Selection{key: key, selected: map[string]struct{}{}}
}

// Toggle 切换一行的选中状态，返回切换后的状态。
func (s *Selection) Toggle(e content.Entry) bool {
	k := s.key(e)
	if _, ok := s.selected[k]; ok {
		s.remove(k)
		return false
	}
	s.add(k)
	return true
}

// Select 选中一行。
func (s *Selection) Select(e content.Entry) {
	s.add(s.key(e))
}

// DeselectKey 按键取消选中，行不在当前页时同样生效。
func (s *Selection) DeselectKey(k string) {
	s.remove(k)
}

// Find 在 rows 中查找选择键为 k 的行。
func (s *Selection) Find(rows []content.Entry, k string) (content.Entry, bool) {
	for _, e := range rows {
		if s.key(e) == k {
			return e, true
		}
	}
	return content.Entry{}, false
}

// SelectAll 将选择替换为当前页的全部行。
func (s *Selection) SelectAll(page []content.Entry) {
	s.Clear()
	for _, e := range page {
		s.add(s.key(e))
	}
}

// AllSelected 判断当前页是否已全部选中。
func (s *Selection) AllSelected(page []content.Entry) bool {
	if len(page) == 0 {
		return false
	}
	for _, e := range page {
		if !s.IsSelected(e) {
			return false
		}
	}
	return true
}

// IsSelected 判断一行是否选中。
func (s *Selection) IsSelected(e content.Entry) bool {
	_, ok := s.selected[s.key(e)]
	return ok
}

// Clear 清空选择。
func (s *Selection) Clear() {
	s.selected = map[string]struct{}{}
	s.order = nil
}

// Keys 按选中顺序返回选择键。
func (s *Selection) Keys() []string {
	return append([]string{}, s.order...)
}

func (s *Selection) add(k string) {
	if _, ok := s.selected[k]; ok {
		return
	}
	s.selected[k] = struct{}{}
	s.order = append(s.order, k)
}

func (s *Selection) remove(k string) {
	if _, ok := s.selected[k]; !ok {
		return
	}
	delete(s.selected, k)
	for i, existing := range s.order {
		if existing == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
