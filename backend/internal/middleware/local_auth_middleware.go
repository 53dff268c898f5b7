package middleware

import (
	"headless-cms/backend/internal/domain/user"

	"github.com/gin-gonic/gin"
)

// LocalAuthMiddleware 在本地模式下注入固定用户，绕过 JWT 校验流程。
type LocalAuthMiddleware struct {
	userID  uint
	isAdmin bool
}

// NewLocalAuthMiddleware 构造本地模式的鉴权中间件。
func NewLocalAuthMiddleware(userID uint, isAdmin bool) *LocalAuthMiddleware {
	return &LocalAuthMiddleware{userID: userID, isAdmin: isAdmin}
}

// Handle 写入固定用户。本地模式只有一个操作者，能力集合全部开启。
func (m *LocalAuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		setIdentity(c, m.userID, m.isAdmin, user.AllCapabilities())
		c.Next()
	}
}
