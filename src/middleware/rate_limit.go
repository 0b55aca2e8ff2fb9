package middleware

import (
	"net/http"

	"cat-board/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware レート制限用のmiddleware
// rps - 1秒あたりのリクエスト数, burst - 瞬間的に許容するリクエスト数
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = rps * 2
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"method":    c.Request.Method,
				"uri":       c.Request.RequestURI,
			}).Warn("レート制限に達しました")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too Many Requests",
				"message": "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요.",
			})
			return
		}
		c.Next()
	}
}
