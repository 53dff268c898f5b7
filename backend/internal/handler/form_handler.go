package handler

import (
	"fmt"
	"net/http"
	"strings"

	response "headless-cms/backend/internal/infra/common"
	appLogger "headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"
	"headless-cms/backend/internal/service/entryform"
	"headless-cms/backend/internal/service/relation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FormHandler 通过服务端会话驱动单条内容的编辑表单。
type FormHandler struct {
	engine   *entryform.Engine
	sessions *entryform.Sessions
	resolver *relation.Resolver
	logger   *zap.SugaredLogger
}

// NewFormHandler 构造 FormHandler。
func NewFormHandler(engine *entryform.Engine, sessions *entryform.Sessions, resolver *relation.Resolver) *FormHandler {
	return &FormHandler{engine: engine, sessions: sessions, resolver: resolver, logger: appLogger.Component("form.handler")}
}

// OpenFormRequest 打开表单的请求体，entry_id 为空时新建。
type OpenFormRequest struct {
	EntryID uint   `json:"entry_id"`
	Locale  string `json:"locale"`
}

// FieldChangeRequest 是单个字段的修改。
type FieldChangeRequest struct {
	Value any  `json:"value"`
	Index *int `json:"index"`
}

// ReorderRequest 给出关联字段的新顺序。
type ReorderRequest struct {
	IDs []any `json:"ids" binding:"required"`
}

// LocaleRequest 切换保存语言。
type LocaleRequest struct {
	Locale string `json:"locale" binding:"required"`
}

// SubmitRequest 是保存请求，action 取 stay/close/new。
type SubmitRequest struct {
	Action entryform.Action `json:"action"`
	Status string           `json:"status"`
}

// ConfirmRequest 携带危险操作的确认标记。
type ConfirmRequest struct {
	Confirm bool `json:"confirm"`
}

// Open 创建编辑会话并返回表单。
func (h *FormHandler) Open(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req OpenFormRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
			return
		}
	}
	log := h.logger.With("action", "open", "collection_id", scope.CollectionID, "entry_id", req.EntryID, "user_id", actor.UserID)

	form, err := h.engine.Open(c.Request.Context(), scope, req.EntryID, strings.TrimSpace(req.Locale))
	if err != nil {
		fail(c, log, err)
		return
	}
	if err := h.sessions.Save(c.Request.Context(), actor.UserID, form); err != nil {
		fail(c, log, err)
		return
	}
	log.Infow("form opened", "token", form.Token)
	response.Created(c, form, nil)
}

// Get 返回会话中的表单。
func (h *FormHandler) Get(c *gin.Context) {
	h.withForm(c, "get", func(form *entryform.Form, _ entry.Actor, _ *zap.SugaredLogger) (any, bool) {
		return form, false
	})
}

// ChangeField 修改单个字段。
func (h *FormHandler) ChangeField(c *gin.Context) {
	var req FieldChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	name := c.Param("field")
	h.withForm(c, "change_field", func(form *entryform.Form, _ entry.Actor, log *zap.SugaredLogger) (any, bool) {
		if _, err := form.ApplyFieldChange(name, req.Value, req.Index); err != nil {
			fail(c, log.With("field", name), err)
			return nil, false
		}
		return form, true
	})
}

// ReorderRelation 调整关联字段的顺序。
func (h *FormHandler) ReorderRelation(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	name := c.Param("field")
	h.withForm(c, "reorder_relation", func(form *entryform.Form, _ entry.Actor, log *zap.SugaredLogger) (any, bool) {
		if _, err := form.ReorderRelation(name, req.IDs); err != nil {
			fail(c, log.With("field", name), err)
			return nil, false
		}
		return form, true
	})
}

// Relation 按表单中当前的顺序解析关联字段，尚未保存的修改也会体现。
// show_status 与 show_created 同时开启时结果不可手动排序。
func (h *FormHandler) Relation(c *gin.Context) {
	name := c.Param("field")
	opts := contentlist.ColumnOptions{ShowStatus: c.Query("show_status") == "true", ShowCreated: c.Query("show_created") == "true"}
	h.withForm(c, "resolve_relation", func(form *entryform.Form, _ entry.Actor, log *zap.SugaredLogger) (any, bool) {
		field, ok := form.Field(name)
		if !ok {
			fail(c, log.With("field", name), fmt.Errorf("%w: %s", entryform.ErrUnknownField, name))
			return nil, false
		}
		scope := entry.Scope{ProjectID: form.ProjectID, CollectionID: form.CollectionID}
		res, err := h.resolver.ResolveField(c.Request.Context(), scope, field, form.State[name], opts)
		if err != nil {
			fail(c, log.With("field", name), err)
			return nil, false
		}
		return res, false
	})
}

// SetLocale 切换保存语言。
func (h *FormHandler) SetLocale(c *gin.Context) {
	var req LocaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	h.withForm(c, "set_locale", func(form *entryform.Form, _ entry.Actor, log *zap.SugaredLogger) (any, bool) {
		if err := form.SetLocale(req.Locale); err != nil {
			fail(c, log, fmt.Errorf("%w: %s", entry.ErrInvalidLocale, req.Locale))
			return nil, false
		}
		return form, true
	})
}

// Submit 保存表单。校验失败时字段错误同时写回会话。
func (h *FormHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
			return
		}
	}
	h.withForm(c, "submit", func(form *entryform.Form, actor entry.Actor, log *zap.SugaredLogger) (any, bool) {
		outcome, err := h.engine.Submit(c.Request.Context(), form, actor, req.Action, req.Status)
		if err != nil {
			h.persist(c, actor.UserID, form, log)
			fail(c, log, err)
			return nil, false
		}
		return gin.H{"outcome": outcome, "form": form}, true
	})
}

// Action 执行 unpublish/trash/delete/duplicate，都需要 confirm。
func (h *FormHandler) Action(c *gin.Context) {
	var req ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
			return
		}
	}
	action := c.Param("action")
	h.withForm(c, "form_"+action, func(form *entryform.Form, actor entry.Actor, log *zap.SugaredLogger) (any, bool) {
		ctx := c.Request.Context()
		var (
			outcome entryform.Outcome
			err     error
		)
		switch action {
		case "unpublish":
			outcome, err = h.engine.Unpublish(ctx, form, actor, req.Confirm)
		case "trash":
			outcome, err = h.engine.Trash(ctx, form, actor, req.Confirm)
		case "delete":
			outcome, err = h.engine.Delete(ctx, form, actor, req.Confirm)
		case "duplicate":
			outcome, err = h.engine.Duplicate(ctx, form, actor, req.Confirm)
		default:
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "unknown form action", gin.H{"action": action})
			return nil, false
		}
		if err != nil {
			fail(c, log, err)
			return nil, false
		}
		if outcome.Navigation == entryform.NavigateListing {
			if err := h.sessions.Delete(ctx, actor.UserID, form.Token); err != nil {
				log.Warnw("drop form session failed", "error", err)
			}
			response.Success(c, http.StatusOK, gin.H{"outcome": outcome}, nil)
			return nil, false
		}
		return gin.H{"outcome": outcome, "form": form}, true
	})
}

// Close 结束编辑会话。
func (h *FormHandler) Close(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	token := c.Param("token")
	if err := h.sessions.Delete(c.Request.Context(), actor.UserID, token); err != nil {
		fail(c, h.logger.With("action", "close", "token", token), err)
		return
	}
	response.NoContent(c)
}

// withForm 载入会话表单并执行 fn；fn 返回 save=true 时写回会话并以返回值响应。
func (h *FormHandler) withForm(c *gin.Context, action string, fn func(form *entryform.Form, actor entry.Actor, log *zap.SugaredLogger) (any, bool)) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	log := h.logger.With("action", action, "token", token, "user_id", actor.UserID)

	form, err := h.sessions.Load(c.Request.Context(), actor.UserID, token)
	if err != nil {
		fail(c, log, err)
		return
	}
	payload, save := fn(form, actor, log)
	if c.Writer.Written() {
		return
	}
	if save && !h.persist(c, actor.UserID, form, log) {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal server error", nil)
		return
	}
	response.Success(c, http.StatusOK, payload, nil)
}

func (h *FormHandler) persist(c *gin.Context, userID uint, form *entryform.Form, log *zap.SugaredLogger) bool {
	if err := h.sessions.Save(c.Request.Context(), userID, form); err != nil {
		log.Errorw("save form session failed", "error", err)
		return false
	}
	return true
}
