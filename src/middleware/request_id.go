package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader リクエストIDのヘッダー名
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey gin.Context に保存するキー
	RequestIDKey = "request_id"
)

// RequestIDMiddleware 受信したリクエストIDを引き継ぐ。無ければ採番する
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
