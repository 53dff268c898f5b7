package middleware

import (
	"math"
	"net/http"
	"strconv"

	response "headless-cms/backend/internal/infra/common"
	"headless-cms/backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit 按操作者对某类操作做固定窗口限流，需挂在鉴权中间件之后。
// 限流器出错时放行并记录日志。
func RateLimit(limiter ratelimit.Limiter, policy ratelimit.Policy, action string, logger *zap.SugaredLogger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(c *gin.Context) {
		if limiter == nil || !policy.Enabled() {
			c.Next()
			return
		}
		userID, _ := UserID(c)
		key := ratelimit.Key(action, userID)
		result, err := limiter.Allow(c.Request.Context(), key, policy.Limit, policy.Window)
		if err != nil {
			logger.Warnw("rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		if !result.Allowed {
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many bulk operations, please retry later", gin.H{"retry_after_seconds": seconds})
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Next()
	}
}
