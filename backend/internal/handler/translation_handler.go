package handler

import (
	"net/http"
	"strconv"
	"strings"

	response "headless-cms/backend/internal/infra/common"
	appLogger "headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/service/translation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TranslationHandler 暴露译文映射、关联/取消关联与候选检索接口。
type TranslationHandler struct {
	linker *translation.Linker
	logger *zap.SugaredLogger
}

// NewTranslationHandler 构造 TranslationHandler。
func NewTranslationHandler(linker *translation.Linker) *TranslationHandler {
	return &TranslationHandler{linker: linker, logger: appLogger.Component("translation.handler")}
}

// LinkRequest 指定要关联或取消关联的另一条内容。
type LinkRequest struct {
	TranslationEntryID uint `json:"translation_entry_id" binding:"required"`
}

// List 返回内容在各语言下的译文。
func (h *TranslationHandler) List(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	result, err := h.linker.Fetch(c.Request.Context(), scope, id)
	if err != nil {
		fail(c, h.logger.With("action", "list", "entry_id", id), err)
		return
	}
	response.Success(c, http.StatusOK, result, nil)
}

// Link 把另一条内容加入当前内容的翻译分组。
func (h *TranslationHandler) Link(c *gin.Context) {
	h.change(c, "link", "Translation linked.")
}

// Unlink 把另一条内容移出翻译分组。
func (h *TranslationHandler) Unlink(c *gin.Context) {
	h.change(c, "unlink", "Translation unlinked.")
}

func (h *TranslationHandler) change(c *gin.Context, action, notice string) {
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
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}
	log := h.logger.With("action", action, "entry_id", id, "target_id", req.TranslationEntryID, "user_id", actor.UserID)

	var (
		result translation.Map
		err    error
	)
	if action == "link" {
		result, err = h.linker.Link(c.Request.Context(), scope, actor, id, req.TranslationEntryID)
	} else {
		result, err = h.linker.Unlink(c.Request.Context(), scope, actor, id, req.TranslationEntryID)
	}
	if err != nil {
		fail(c, log, err)
		return
	}
	log.Infow("translation group updated", "group_id", result.GroupID)
	response.Success(c, http.StatusOK, gin.H{"message": notice, "translations": result}, nil)
}

// Candidates 列出目标语言下可关联的内容，支持 search 与 page 参数。
func (h *TranslationHandler) Candidates(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	locale := strings.TrimSpace(c.Param("locale"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.linker.Candidates(c.Request.Context(), scope, id, locale, strings.TrimSpace(c.Query("search")), page)
	if err != nil {
		fail(c, h.logger.With("action", "candidates", "entry_id", id, "locale", locale), err)
		return
	}
	response.Success(c, http.StatusOK, envelope(result.Entries, result.Pagination), nil)
}
