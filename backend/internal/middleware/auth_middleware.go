package middleware

import (
	"net/http"
	"strings"

	response "headless-cms/backend/internal/infra/common"
	"headless-cms/backend/internal/infra/token"

	"github.com/gin-gonic/gin"
)

// TokenParser 解析访问令牌。
type TokenParser interface {
	Parse(raw string) (token.Claims, error)
}

// AuthMiddleware 校验 Bearer Token，并把操作者身份与能力集合写入上下文。
type AuthMiddleware struct {
	tokens TokenParser
}

// NewAuthMiddleware 创建鉴权中间件实例。
func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle 返回 Gin 中间件。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "bearer ") {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing authorization header", nil)
			c.Abort()
			return
		}

		claims, err := m.tokens.Parse(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		setIdentity(c, claims.UserID, claims.IsAdmin, claims.Caps)
		c.Next()
	}
}
