// Package translation 组装一条内容在各语言下的译文映射，并维护翻译分组的关联关系。
package translation

import (
	"context"
	"fmt"

	"headless-cms/backend/internal/domain/content"
	"headless-cms/backend/internal/domain/project"
	"headless-cms/backend/internal/domain/schema"
	"headless-cms/backend/internal/infra/metrics"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"

	"go.uber.org/zap"
)

// Backend 是译文查询依赖的内容服务能力，*entry.Service 满足该接口。
type Backend interface {
	Context(ctx context.Context, scope entry.Scope) (*project.Project, *project.Collection, []schema.Field, error)
	Get(ctx context.Context, scope entry.Scope, id uint) (*content.Entry, error)
	Search(ctx context.Context, scope entry.Scope, q contentlist.Query) (contentlist.Page, error)
	LinkTranslation(ctx context.Context, scope entry.Scope, actor entry.Actor, id, targetID uint) (string, error)
	UnlinkTranslation(ctx context.Context, scope entry.Scope, actor entry.Actor, id, targetID uint) error
}

// Map 是按语言索引的译文，缺失的语言值为 nil。
type Map struct {
	GroupID string                    `json:"translation_group_id,omitempty"`
	Locales []string                  `json:"locales"`
	Entries map[string]*content.Entry `json:"entries"`
}

// Linker 查询并维护译文映射。
type Linker struct {
	backend Backend
	logger  *zap.SugaredLogger
}

// NewLinker 构造 Linker。
func NewLinker(backend Backend, logger *zap.SugaredLogger) *Linker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Linker{backend: backend, logger: logger}
}

// Fetch 返回当前内容的译文映射：当前语言映射到自身；
// 其它语言在分组存在时按语言检索并匹配分组 ID，单个语言查询失败只影响该语言。
func (l *Linker) Fetch(ctx context.Context, scope entry.Scope, id uint) (Map, error) {
	current, err := l.backend.Get(ctx, scope, id)
	if err != nil {
		return Map{}, err
	}
	return l.fetch(ctx, scope, current, current.GroupID())
}

// Link 关联两条内容，并使用服务端返回的分组 ID 重新拉取映射。
func (l *Linker) Link(ctx context.Context, scope entry.Scope, actor entry.Actor, id, targetID uint) (Map, error) {
	groupID, err := l.backend.LinkTranslation(ctx, scope, actor, id, targetID)
	if err != nil {
		return Map{}, err
	}
	current, err := l.backend.Get(ctx, scope, id)
	if err != nil {
		return Map{}, err
	}
	return l.fetch(ctx, scope, current, groupID)
}

// Unlink 将目标内容移出分组后重新拉取完整映射。
func (l *Linker) Unlink(ctx context.Context, scope entry.Scope, actor entry.Actor, id, targetID uint) (Map, error) {
	if err := l.backend.UnlinkTranslation(ctx, scope, actor, id, targetID); err != nil {
		return Map{}, err
	}
	return l.Fetch(ctx, scope, id)
}

// Candidates 返回可以填入某个空语言位的内容，排除当前内容与已关联的内容。
func (l *Linker) Candidates(ctx context.Context, scope entry.Scope, id uint, locale, search string, page int) (contentlist.Page, error) {
	current, err := l.backend.Get(ctx, scope, id)
	if err != nil {
		return contentlist.Page{}, err
	}
	q := contentlist.Query{Locale: locale, Search: search, Page: 1, PerPage: contentlist.MaxPageSize}
	var pool []content.Entry
	for {
		res, err := l.backend.Search(ctx, scope, q)
		if err != nil {
			return contentlist.Page{}, fmt.Errorf("search candidates: %w", err)
		}
		for _, e := range res.Entries {
			if e.ID == current.ID || e.GroupID() != "" {
				continue
			}
			pool = append(pool, e)
		}
		if res.CurrentPage >= res.LastPage {
			break
		}
		q.Page++
	}
	pagination, start, end := contentlist.Paginate(len(pool), page, contentlist.DefaultPageSize)
	return contentlist.Page{Entries: pool[start:end], Pagination: pagination}, nil
}

func (l *Linker) fetch(ctx context.Context, scope entry.Scope, current *content.Entry, groupID string) (Map, error) {
	proj, _, _, err := l.backend.Context(ctx, scope)
	if err != nil {
		return Map{}, err
	}
	locales := proj.LocaleList()
	out := Map{GroupID: groupID, Locales: locales, Entries: make(map[string]*content.Entry, len(locales))}
	for _, locale := range locales {
		if locale == current.Locale {
			out.Entries[locale] = current
			metrics.RecordTranslationLookup("self")
			continue
		}
		if groupID == "" {
			out.Entries[locale] = nil
			continue
		}
		found, err := l.lookup(ctx, scope, locale, groupID)
		if err != nil {
			l.logger.Warnw("translation lookup failed", "entry_id", current.ID, "locale", locale, "error", err)
			metrics.RecordTranslationLookup("error")
			out.Entries[locale] = nil
			continue
		}
		if found == nil {
			metrics.RecordTranslationLookup("missing")
		} else {
			metrics.RecordTranslationLookup("found")
		}
		out.Entries[locale] = found
	}
	return out, nil
}

func (l *Linker) lookup(ctx context.Context, scope entry.Scope, locale, groupID string) (*content.Entry, error) {
	q := contentlist.Query{Locale: locale, Page: 1, PerPage: contentlist.MaxPageSize}
	for {
		res, err := l.backend.Search(ctx, scope, q)
		if err != nil {
			return nil, err
		}
		for i := range res.Entries {
			if res.Entries[i].GroupID() == groupID {
				found := res.Entries[i]
				return &found, nil
			}
		}
		if res.CurrentPage >= res.LastPage {
			return nil, nil
		}
		q.Page++
	}
}
