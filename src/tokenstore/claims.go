package tokenstore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims JWT内のクレーム（署名はサーバー側で検証される）
type TokenClaims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Inspect トークンを署名検証なしでデコードする。
// 鍵はサーバーだけが持つので、クライアントは表示と期限確認にのみ使う。
func Inspect(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}
	return claims, nil
}

// Expired 有効期限切れかどうか（expが無い場合は期限なし扱い）
func (c *TokenClaims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ExpiresIn 期限までの残り時間
func (c *TokenClaims) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Time.Sub(now), true
}
