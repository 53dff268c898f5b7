package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	response "headless-cms/backend/internal/infra/common"
	appLogger "headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"
	"headless-cms/backend/internal/service/relation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EntryHandler 负责内容的增删改查、回收站、批量操作与关联查询。
type EntryHandler struct {
	entries  *entry.Service
	resolver *relation.Resolver
	logger   *zap.SugaredLogger
}

// NewEntryHandler 构造 EntryHandler。
func NewEntryHandler(entries *entry.Service, resolver *relation.Resolver) *EntryHandler {
	return &EntryHandler{entries: entries, resolver: resolver, logger: appLogger.Component("entry.handler")}
}

// Search 按 filter_<字段>、search、sort、page 等参数检索内容，返回分页信封。
func (h *EntryHandler) Search(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	q := contentlist.ParseQuery(c.Request.URL.Query())
	page, err := h.entries.Search(c.Request.Context(), scope, q)
	if err != nil {
		fail(c, h.scope("search", scope), err)
		return
	}
	response.Success(c, http.StatusOK, envelope(page.Entries, page.Pagination), nil)
}

// Get 返回单条内容。
func (h *EntryHandler) Get(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	current, err := h.entries.Get(c.Request.Context(), scope, id)
	if err != nil {
		fail(c, h.scope("get", scope).With("entry_id", id), err)
		return
	}
	response.Success(c, http.StatusOK, current, nil)
}

// Create 新建内容，请求体为 {data, status, locale}。
func (h *EntryHandler) Create(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	log := h.scope("create", scope).With("user_id", actor.UserID)

	var req entry.SaveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	created, err := h.entries.Create(c.Request.Context(), scope, actor, req)
	if err != nil {
		fail(c, log, err)
		return
	}
	log.Infow("entry created", "entry_id", created.ID, "status", created.Status)
	response.Created(c, gin.H{"message": "Entry created.", "entry_id": created.ID, "entry": created}, nil)
}

// Update 保存已有内容。
func (h *EntryHandler) Update(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	log := h.scope("update", scope).With("entry_id", id, "user_id", actor.UserID)

	var req entry.SaveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	updated, err := h.entries.Update(c.Request.Context(), scope, actor, id, req)
	if err != nil {
		fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Entry updated.", "entry_id": updated.ID, "entry": updated}, nil)
}

// Trash 移入回收站，需要 ?confirm=true。
func (h *EntryHandler) Trash(c *gin.Context) {
	h.remove(c, "trash", "Entry moved to trash.", h.entries.Trash)
}

// Delete 彻底删除，需要 ?confirm=true。
func (h *EntryHandler) Delete(c *gin.Context) {
	h.remove(c, "delete", "Entry permanently deleted.", h.entries.Delete)
}

// Restore 从回收站恢复。
func (h *EntryHandler) Restore(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.entries.Restore(c.Request.Context(), scope, actor, id); err != nil {
		fail(c, h.scope("restore", scope).With("entry_id", id), err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Entry restored.", "entry_id": id}, nil)
}

// Duplicate 复制为新的草稿。
func (h *EntryHandler) Duplicate(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	copied, err := h.entries.Duplicate(c.Request.Context(), scope, actor, id)
	if err != nil {
		fail(c, h.scope("duplicate", scope).With("entry_id", id), err)
		return
	}
	response.Created(c, gin.H{"message": "Entry duplicated.", "entry_id": copied.ID, "entry": copied}, nil)
}

// BulkRequest 是批量操作请求体。
type BulkRequest struct {
	Action   entry.BulkAction `json:"action" binding:"required"`
	IDs      []uint           `json:"ids"`
	Confirm  bool             `json:"confirm"`
	Password string           `json:"password"`
}

// Bulk 执行批量移入回收站/恢复/彻底删除，单条失败不影响其它条目。
func (h *EntryHandler) Bulk(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	log := h.scope("bulk", scope).With("bulk_action", req.Action, "user_id", actor.UserID, "count", len(req.IDs))

	report, err := runBulk(c.Request.Context(), h.entries, scope, actor, req)
	if err != nil {
		fail(c, log, err)
		return
	}
	log.Infow("bulk finished", "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	response.Success(c, http.StatusOK, newBulkOutcome(report), nil)
}

// bulkOutcome 是批量操作的响应体。
type bulkOutcome struct {
	Message string           `json:"message"`
	Partial bool             `json:"partial"`
	Report  entry.BulkReport `json:"report"`
}

func newBulkOutcome(report entry.BulkReport) *bulkOutcome {
	return &bulkOutcome{Message: report.Message(), Partial: report.Partial(), Report: report}
}

// runBulk 校验确认标记后执行批量操作，彻底删除额外校验密码。
func runBulk(ctx context.Context, entries *entry.Service, scope entry.Scope, actor entry.Actor, req BulkRequest) (entry.BulkReport, error) {
	switch req.Action {
	case entry.BulkTrashAction:
		if !req.Confirm {
			return entry.BulkReport{}, entry.ErrConfirmationRequired
		}
		return entries.BulkTrash(ctx, scope, actor, req.IDs)
	case entry.BulkRestoreAction:
		return entries.BulkRestore(ctx, scope, actor, req.IDs)
	case entry.BulkDeleteAction:
		if !req.Confirm {
			return entry.BulkReport{}, entry.ErrConfirmationRequired
		}
		return entries.BulkDelete(ctx, scope, actor, req.IDs, req.Password)
	default:
		return entry.BulkReport{}, fmt.Errorf("%w: %q", errUnknownBulkAction, req.Action)
	}
}

// LookupRequest 是关联解析请求体，collection_id 为空时使用路径中的集合。
type LookupRequest struct {
	IDs          []any `json:"ids"`
	CollectionID uint  `json:"collection_id"`
	ShowStatus   bool  `json:"show_status"`
	ShowCreated  bool  `json:"show_created"`
}

// Lookup 按标识解析关联内容，按传入顺序返回，并附带目标集合的可展示字段。
func (h *EntryHandler) Lookup(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	target := req.CollectionID
	if target == 0 {
		target = scope.CollectionID
	}
	opts := contentlist.ColumnOptions{ShowStatus: req.ShowStatus, ShowCreated: req.ShowCreated}
	resolved, err := h.resolver.Resolve(c.Request.Context(), scope.ProjectID, target, req.IDs, opts)
	if err != nil {
		fail(c, h.scope("lookup", scope).With("target_collection_id", target), err)
		return
	}
	response.Success(c, http.StatusOK, resolved, nil)
}

func (h *EntryHandler) remove(c *gin.Context, action, notice string, fn func(ctx context.Context, scope entry.Scope, actor entry.Actor, id uint) error) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	log := h.scope(action, scope).With("entry_id", id, "user_id", actor.UserID)
	if confirmed, _ := strconv.ParseBool(c.Query("confirm")); !confirmed {
		fail(c, log, entry.ErrConfirmationRequired)
		return
	}
	if err := fn(c.Request.Context(), scope, actor, id); err != nil {
		fail(c, log, err)
		return
	}
	log.Infow("entry removed")
	response.Success(c, http.StatusOK, gin.H{"message": notice, "entry_id": id}, nil)
}

func (h *EntryHandler) scope(action string, scope entry.Scope) *zap.SugaredLogger {
	return h.logger.With("action", action, "project_id", scope.ProjectID, "collection_id", scope.CollectionID)
}
