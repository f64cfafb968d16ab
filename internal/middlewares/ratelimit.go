package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harbor-im/harbor/config"
	"github.com/harbor-im/harbor/utils/ratelimit"
)

// RateLimitMiddleware 按调用方限流
// 已认证请求以 user_id 为限流维度，否则退化为客户端 IP
func RateLimitMiddleware(limiter ratelimit.Limiter, cfg *config.RateLimitConfig) gin.HandlerFunc {
	window := time.Duration(cfg.WindowSec) * time.Second

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Limit, window)
		if err == nil && !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too Many Requests - please try again later",
			})
			return
		}
		c.Next()
	}
}
