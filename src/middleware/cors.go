package middleware

import (
	"net/http"

	"cat-board/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CORSMiddleware CORS設定用のmiddleware
// allowedOrigins に "*" が含まれる場合は全オリジンを許可する
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"origin": origin,
			"uri":    c.Request.RequestURI,
		}).Debug("CORS middleware processing")

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400") // 24時間

		if c.Request.Method == http.MethodOptions {
			logger.WithFields(logrus.Fields{
				"origin": origin,
				"uri":    c.Request.RequestURI,
			}).Debug("CORS preflight request handled")

			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
