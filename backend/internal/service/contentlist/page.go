package contentlist

import (
	"context"

	"headless-cms/backend/internal/domain/content"
)

// Pagination 是分页信封中的元数据，字段名与前端约定一致。
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	From        int `json:"from"`
	To          int `json:"to"`
	Total       int `json:"total"`
}

// Paginate 计算分页元数据，并返回当前页在全量结果中的 [start, end) 下标。
// 页码超过末页时返回空区间，大页码不会溢出。
func Paginate(total, page, perPage int) (Pagination, int, int) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}
	start, end := total, total
	if page <= lastPage {
		start = (page - 1) * perPage
		end = total
		if perPage < total-start {
			end = start + perPage
		}
	}
	p := Pagination{CurrentPage: page, LastPage: lastPage, PerPage: perPage, Total: total}
	if end > start {
		p.From = start + 1
		p.To = end
	}
	return p, start, end
}

// Page 是一次检索的结果。
type Page struct {
	Entries []content.Entry
	Pagination
}

// Fetcher 执行列表检索，由内容服务实现。
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Page, error)
}

// FetcherFunc 允许以函数实现 Fetcher。
type FetcherFunc func(ctx context.Context, q Query) (Page, error)

// Fetch 实现 Fetcher。
func (f FetcherFunc) Fetch(ctx context.Context, q Query) (Page, error) {
	return f(ctx, q)
}
