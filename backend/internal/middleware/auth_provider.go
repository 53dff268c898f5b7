package middleware

import (
	"headless-cms/backend/internal/domain/user"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
	ctxCaps    = "caps"
)

// Authenticator 抽象鉴权中间件，实现 Handle() 的结构体即可插入路由。
type Authenticator interface {
	Handle() gin.HandlerFunc
}

func setIdentity(c *gin.Context, userID uint, isAdmin bool, caps user.Capabilities) {
	c.Set(ctxUserID, userID)
	c.Set(ctxIsAdmin, isAdmin)
	c.Set(ctxCaps, caps)
}

// UserID 读取当前操作者 ID，未鉴权时返回 false。
func UserID(c *gin.Context) (uint, bool) {
	raw, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := raw.(uint)
	return id, ok && id > 0
}

// IsAdmin 判断当前操作者是否为管理员。
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}

// Capabilities 读取当前操作者的能力集合，缺失时全部关闭。
func Capabilities(c *gin.Context) user.Capabilities {
	raw, ok := c.Get(ctxCaps)
	if !ok {
		return user.Capabilities{}
	}
	caps, _ := raw.(user.Capabilities)
	return caps
}
