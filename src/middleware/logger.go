package middleware

import (
	"time"

	"cat-board/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CacheStatusKey ハンドラーが返したメモキャッシュの状態
const CacheStatusKey = "cache_status"

// LoggerMiddleware 構造化ログを使用したロギングmiddleware
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"uri":        c.Request.RequestURI,
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(RequestIDKey),
			"user_agent": c.Request.UserAgent(),
		}).Debug("リクエスト開始")

		c.Next()

		statusCode := c.Writer.Status()
		fields := boardFields(c)
		fields["client_ip"] = c.ClientIP()
		fields["status_code"] = statusCode
		fields["latency_ms"] = time.Since(start).Milliseconds()
		fields["response_size"] = c.Writer.Size()
		logEntry := logger.WithFields(fields)

		switch {
		case statusCode >= 500:
			logEntry.Error("リクエスト完了 - サーバーエラー")
		case statusCode >= 400:
			logEntry.Warn("リクエスト完了 - クライアントエラー")
		case statusCode >= 300:
			logEntry.Info("リクエスト完了 - リダイレクト")
		default:
			logEntry.Info("リクエスト完了 - 成功")
		}

		if len(c.Errors) > 0 {
			fields := boardFields(c)
			fields["errors"] = c.Errors.String()
			logger.WithFields(fields).Error("リクエスト処理中にエラーが発生")
		}
	}
}

// boardFields リクエストとボードの状態（メモID・キャッシュ状態・ログイン中のユーザー）
func boardFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{
		"method":     c.Request.Method,
		"uri":        c.Request.RequestURI,
		"request_id": c.GetString(RequestIDKey),
	}
	if id := c.Param("id"); id != "" {
		fields["memo_id"] = id
	}
	if status := c.GetString(CacheStatusKey); status != "" {
		fields["cache_status"] = status
	}
	if _, ok := c.Get(SessionKey); ok {
		s := SessionFrom(c)
		fields["logged_in"] = s.LoggedIn
		if s.UserID != 0 {
			fields["user_id"] = s.UserID
		}
	}
	return fields
}
