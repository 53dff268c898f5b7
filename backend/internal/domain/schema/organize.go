package schema

import "sort"

// Organize 将扁平的字段列表整理为可渲染的树：顶层字段保持输入顺序，
// 分组字段挂载按 order 排序后的子字段。
// 父字段缺失或父字段不是顶层分组时，该字段按顶层字段处理。
func Organize(fields []Field) []Field {
	groups := make(map[uint]int, len(fields))
	for i, f := range fields {
		if f.IsGroup() && f.ParentFieldID == nil {
			groups[f.ID] = i
		}
	}

	children := make(map[uint][]Field)
	attached := make([]bool, len(fields))
	for i, f := range fields {
		if f.ParentFieldID == nil {
			continue
		}
		if _, ok := groups[*f.ParentFieldID]; !ok {
			continue
		}
		if f.IsGroup() {
			// 分组不能嵌套，按孤立字段上浮。
			continue
		}
		child := f
		child.Children = nil
		children[*f.ParentFieldID] = append(children[*f.ParentFieldID], child)
		attached[i] = true
	}

	result := make([]Field, 0, len(fields)-countTrue(attached))
	for i, f := range fields {
		if attached[i] {
			continue
		}
		node := f
		node.Children = nil
		if _, ok := groups[f.ID]; ok {
			kids := children[f.ID]
			sort.SliceStable(kids, func(a, b int) bool { return kids[a].Order < kids[b].Order })
			node.Children = kids
			if node.Children == nil {
				node.Children = []Field{}
			}
		}
		result = append(result, node)
	}
	return result
}

// FindByName 在整理后的顶层字段中查找指定名称。
func FindByName(tree []Field, name string) (Field, bool) {
	for _, f := range tree {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}
