package handler

import (
	"net/http"

	response "headless-cms/backend/internal/infra/common"
	appLogger "headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/service/entry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SchemaHandler 提供集合与字段树的只读接口，供后台渲染表单和列表。
type SchemaHandler struct {
	entries *entry.Service
	logger  *zap.SugaredLogger
}

// NewSchemaHandler 构造 SchemaHandler。
func NewSchemaHandler(entries *entry.Service) *SchemaHandler {
	return &SchemaHandler{entries: entries, logger: appLogger.Component("schema.handler")}
}

// Collections 返回项目的语言配置与集合列表。
func (h *SchemaHandler) Collections(c *gin.Context) {
	log := h.logger.With("action", "collections")
	projectID, ok := uintParam(c, "pid")
	if !ok {
		return
	}
	proj, list, err := h.entries.Collections(c.Request.Context(), projectID)
	if err != nil {
		fail(c, log.With("project_id", projectID), err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"project":        proj,
		"locales":        proj.LocaleList(),
		"default_locale": proj.DefaultLocale,
		"collections":    list,
	}, nil)
}

// Fields 返回集合整理后的字段树。
func (h *SchemaHandler) Fields(c *gin.Context) {
	log := h.logger.With("action", "fields")
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	proj, collection, tree, err := h.entries.Context(c.Request.Context(), scope)
	if err != nil {
		fail(c, log.With("collection_id", scope.CollectionID), err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"collection": collection,
		"locales":    proj.LocaleList(),
		"fields":     tree,
	}, nil)
}
