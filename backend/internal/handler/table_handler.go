package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	response "headless-cms/backend/internal/infra/common"
	"headless-cms/backend/internal/infra/listsettings"
	appLogger "headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/infra/metrics"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TableOptions 配置列表表格。
type TableOptions struct {
	Debounce time.Duration
	Render   contentlist.RenderOptions
}

// TableHandler 维护每个用户、每个列表页的表格状态，设置跨请求持久化。
type TableHandler struct {
	entries  *entry.Service
	store    contentlist.SettingsStore
	registry *contentlist.Registry
	opts     TableOptions
	logger   *zap.SugaredLogger
}

// NewTableHandler 构造 TableHandler。
func NewTableHandler(entries *entry.Service, store contentlist.SettingsStore, registry *contentlist.Registry, opts TableOptions) *TableHandler {
	if opts.Debounce <= 0 {
		opts.Debounce = contentlist.DefaultDebounce
	}
	return &TableHandler{
		entries:  entries,
		store:    store,
		registry: registry,
		opts:     opts,
		logger:   appLogger.Component("table.handler"),
	}
}

// tableView 是表格接口的响应体。
type tableView struct {
	Settings    contentlist.Settings   `json:"settings"`
	Columns     []contentlist.Column   `json:"columns"`
	Rows        []contentlist.Row      `json:"rows"`
	State       contentlist.State      `json:"state"`
	Page        contentlist.Pagination `json:"pagination"`
	Query       string                 `json:"query"` // 当前检索参数，可直接拼接到 entries 接口。
	Selected    []string               `json:"selected"`
	AllSelected bool                   `json:"all_selected"`
	Bulk        *bulkOutcome           `json:"bulk,omitempty"`
}

// tableCall 是一次表格请求解析出的上下文。
type tableCall struct {
	scope    entry.Scope
	actor    entry.Actor
	pageName string
	base     contentlist.Query
	key      string
	log      *zap.SugaredLogger
}

// Get 立即检索并返回当前页。查询参数 locale、status、trashed 固定附加在每次检索上。
func (h *TableHandler) Get(c *gin.Context) {
	h.serve(c, "get_table", func(table *contentlist.Table, call tableCall) (contentlist.Snapshot, *bulkOutcome, bool) {
		snap, err := table.Refresh(c.Request.Context())
		if err != nil {
			fail(c, call.log, err)
			return snap, nil, false
		}
		return snap, nil, true
	})
}

// Apply 提交一次设置或行选择变更，等防抖检索完成后返回结果。
func (h *TableHandler) Apply(c *gin.Context) {
	var m contentlist.Mutation
	if err := c.ShouldBindJSON(&m); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	h.serve(c, "apply_table", func(table *contentlist.Table, call tableCall) (contentlist.Snapshot, *bulkOutcome, bool) {
		log := call.log.With("mutation", m.Kind)
		if _, err := table.Apply(c.Request.Context(), m); err != nil {
			fail(c, log, err)
			return contentlist.Snapshot{}, nil, false
		}
		snap, err := table.Wait(c.Request.Context())
		if err == nil {
			err = snap.Err
		}
		if err != nil {
			fail(c, log, err)
			return snap, nil, false
		}
		return snap, nil, true
	})
}

// TableBulkRequest 对表格当前选中的行执行批量操作。
type TableBulkRequest struct {
	Action   entry.BulkAction `json:"action" binding:"required"`
	Confirm  bool             `json:"confirm"`
	Password string           `json:"password"`
}

// Bulk 以表格的行选择为对象执行批量操作，成功的行从选择中移除，随后刷新当前页。
func (h *TableHandler) Bulk(c *gin.Context) {
	var req TableBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	h.serve(c, "bulk_table", func(table *contentlist.Table, call tableCall) (contentlist.Snapshot, *bulkOutcome, bool) {
		ctx := c.Request.Context()
		ids := selectedIDs(table.Snapshot().Selected)
		log := call.log.With("bulk_action", req.Action, "count", len(ids))
		if len(ids) == 0 {
			fail(c, log, entry.ErrNothingSelected)
			return contentlist.Snapshot{}, nil, false
		}
		report, err := runBulk(ctx, h.entries, call.scope, call.actor, BulkRequest{Action: req.Action, IDs: ids, Confirm: req.Confirm, Password: req.Password})
		if err != nil {
			fail(c, log, err)
			return contentlist.Snapshot{}, nil, false
		}
		done := make([]string, 0, len(report.Succeeded))
		for _, id := range report.Succeeded {
			done = append(done, strconv.FormatUint(uint64(id), 10))
		}
		table.Deselect(done...)
		log.Infow("bulk finished", "succeeded", len(report.Succeeded), "failed", len(report.Failed))

		snap, err := table.Refresh(ctx)
		if err != nil {
			fail(c, log, err)
			return snap, nil, false
		}
		return snap, newBulkOutcome(report), true
	})
}

// Close 释放表格实例并停止其防抖定时器，设置仍保留在存储中。
func (h *TableHandler) Close(c *gin.Context) {
	call, ok := h.locate(c, "close_table")
	if !ok {
		return
	}
	h.registry.Remove(call.key)
	call.log.Debugw("table released")
	response.NoContent(c)
}

func (h *TableHandler) locate(c *gin.Context, action string) (tableCall, bool) {
	scope, ok := scopeFrom(c)
	if !ok {
		return tableCall{}, false
	}
	actor, ok := actorFrom(c)
	if !ok {
		return tableCall{}, false
	}
	pageName := strings.TrimSpace(c.Param("page"))
	if pageName == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid page", nil)
		return tableCall{}, false
	}
	base := baseQuery(c)
	return tableCall{
		scope:    scope,
		actor:    actor,
		pageName: pageName,
		base:     base,
		key:      fmt.Sprintf("%d:%d:%d:%s:%s:%s:%t", actor.UserID, scope.ProjectID, scope.CollectionID, pageName, base.Locale, base.Status, base.Trashed),
		log:      h.logger.With("action", action, "collection_id", scope.CollectionID, "page", pageName, "user_id", actor.UserID),
	}, true
}

func (h *TableHandler) serve(c *gin.Context, action string, run func(*contentlist.Table, tableCall) (contentlist.Snapshot, *bulkOutcome, bool)) {
	call, ok := h.locate(c, action)
	if !ok {
		return
	}
	_, _, tree, err := h.entries.Context(c.Request.Context(), call.scope)
	if err != nil {
		fail(c, call.log, err)
		return
	}

	table, err := h.registry.Acquire(call.key, func() (*contentlist.Table, error) {
		table := contentlist.NewTable(
			listsettings.Key(call.actor.UserID, call.pageName),
			h.store,
			h.entries.Fetcher(call.scope),
			contentlist.WithDebounce(h.opts.Debounce),
			contentlist.WithBaseQuery(call.base),
			contentlist.WithFetchObserver(metrics.ObserveListFetch),
			contentlist.WithSelectionKey(contentlist.EntryIDKey),
			contentlist.WithLogger(call.log),
		)
		if err := table.Load(c.Request.Context()); err != nil {
			return nil, err
		}
		return table, nil
	})
	if err != nil {
		fail(c, call.log, err)
		return
	}

	snap, bulk, ok := run(table, call)
	if !ok {
		return
	}
	columns := contentlist.Columns(tree, contentlist.DefaultColumnOptions())
	response.Success(c, http.StatusOK, tableView{
		Settings:    snap.Settings,
		Columns:     columns,
		Rows:        contentlist.RenderRows(snap.Page.Entries, columns, snap.Settings, h.opts.Render),
		State:       snap.State,
		Page:        snap.Page.Pagination,
		Query:       snap.Query.Encode().Encode(),
		Selected:    snap.Selected,
		AllSelected: snap.AllSelected,
		Bulk:        bulk,
	}, nil)
}

// selectedIDs 将选择键还原为内容 id，表格始终以 EntryIDKey 作为选择键。
func selectedIDs(keys []string) []uint {
	ids := make([]uint, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseUint(k, 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

func baseQuery(c *gin.Context) contentlist.Query {
	trashed, _ := strconv.ParseBool(c.Query("trashed"))
	return contentlist.Query{
		Locale:  strings.TrimSpace(c.Query("locale")),
		Status:  strings.TrimSpace(c.Query("status")),
		Trashed: trashed,
	}
}
