package middleware

import (
	"time"

	"cat-board/src/logger"
	"cat-board/src/tokenstore"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// SessionKey gin.Context に保存するセッション情報のキー
	SessionKey = "session"
)

// Session ボード表示用のログイン情報
// トークンの検証はAPIサーバー側で行うため、ここでは署名を確認しない
type Session struct {
	LoggedIn bool
	Email    string
	UserID   int
	Expired  bool
}

// SessionMiddleware 保存済みトークンを読み取りセッション情報を設定する
// 未ログインでもリクエストは止めない（401はAPI応答で検知する）
func SessionMiddleware(store tokenstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(SessionKey, loadSession(c, store))
		c.Next()
	}
}

// SessionFrom gin.Context からセッション情報を取得
func SessionFrom(c *gin.Context) Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(Session); ok {
			return s
		}
	}
	return Session{}
}

func loadSession(c *gin.Context, store tokenstore.Store) Session {
	token, err := store.Token()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"client_ip": c.ClientIP(),
			"error":     err.Error(),
		}).Warn("トークンの読み込みに失敗")
		return Session{}
	}
	if token == "" {
		return Session{}
	}

	claims, err := tokenstore.Inspect(token)
	if err != nil {
		logger.WithField("error", err.Error()).Debug("トークンのクレームを読み取れません")
		return Session{LoggedIn: true}
	}
	return Session{
		LoggedIn: true,
		Email:    claims.Email,
		UserID:   claims.UserID,
		Expired:  claims.Expired(time.Now()),
	}
}
