package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	response "headless-cms/backend/internal/infra/common"
	"headless-cms/backend/internal/middleware"
	"headless-cms/backend/internal/service/contentlist"
	"headless-cms/backend/internal/service/entry"
	"headless-cms/backend/internal/service/entryform"
	"headless-cms/backend/internal/service/relation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// actorFrom 从鉴权中间件写入的上下文中读取操作者。
func actorFrom(c *gin.Context) (entry.Actor, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return entry.Actor{}, false
	}
	return entry.Actor{UserID: userID, Caps: middleware.Capabilities(c)}, true
}

// scopeFrom 解析 :pid 与 :cid。
func scopeFrom(c *gin.Context) (entry.Scope, bool) {
	projectID, ok := uintParam(c, "pid")
	if !ok {
		return entry.Scope{}, false
	}
	collectionID, ok := uintParam(c, "cid")
	if !ok {
		return entry.Scope{}, false
	}
	return entry.Scope{ProjectID: projectID, CollectionID: collectionID}, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid "+name, gin.H{"param": name})
		return 0, false
	}
	return uint(value), true
}

// fail 将服务层错误映射为统一错误响应。
func fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	var verr *entry.ValidationError
	if errors.As(err, &verr) {
		log.Infow("validation failed", "fields", verr.Fields)
		response.ValidationFailed(c, "", verr.Fields)
		return
	}

	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "error", err)
		response.Fail(c, status, code, "internal server error", nil)
		return
	}
	log.Warnw("request rejected", "error", err, "code", code)
	response.Fail(c, status, code, err.Error(), nil)
}

// errUnknownBulkAction 表示批量操作类型不受支持。
var errUnknownBulkAction = errors.New("unknown bulk action")

func classify(err error) (int, response.ErrorCode) {
	switch {
	case errors.Is(err, entry.ErrEntryNotFound),
		errors.Is(err, entry.ErrProjectNotFound),
		errors.Is(err, entry.ErrCollectionNotFound),
		errors.Is(err, entryform.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, entry.ErrForbidden), errors.Is(err, entry.ErrInvalidPassword):
		return http.StatusForbidden, response.ErrForbidden
	case errors.Is(err, entry.ErrConfirmationRequired):
		return http.StatusPreconditionRequired, response.ErrConfirmationRequired
	case errors.Is(err, entry.ErrSingletonViolation),
		errors.Is(err, entry.ErrTranslationConflict),
		errors.Is(err, entryform.ErrBusy):
		return http.StatusConflict, response.ErrConflict
	case errors.Is(err, entry.ErrInvalidLocale),
		errors.Is(err, entry.ErrInvalidStatus),
		errors.Is(err, entry.ErrNothingSelected),
		errors.Is(err, entryform.ErrUnknownField),
		errors.Is(err, entryform.ErrIndexOutOfRange),
		errors.Is(err, entryform.ErrNotRelation),
		errors.Is(err, entryform.ErrNotSaved),
		errors.Is(err, entryform.ErrInvalidAction),
		errors.Is(err, relation.ErrNotPermutation),
		errors.Is(err, contentlist.ErrInvalidMutation),
		errors.Is(err, errUnknownBulkAction):
		return http.StatusBadRequest, response.ErrBadRequest
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// pageEnvelope 是列表接口的分页信封。
type pageEnvelope struct {
	Data any `json:"data"`
	contentlist.Pagination
}

func envelope(data any, p contentlist.Pagination) pageEnvelope {
	return pageEnvelope{Data: data, Pagination: p}
}
