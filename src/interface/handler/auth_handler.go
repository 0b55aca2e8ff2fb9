package handler

import (
	"net/http"
	"strings"
	"time"

	"cat-board/src/middleware"
	"cat-board/src/tokenstore"
	"cat-board/src/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler stores and forgets the bearer token the board sends to the API
type AuthHandler struct {
	store     tokenstore.Store
	memos     MemoCache
	validator *validator.CustomValidator
	logger    *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(store tokenstore.Store, memos MemoCache, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		store:     store,
		memos:     memos,
		validator: validator.NewCustomValidator(),
		logger:    logger,
	}
}

// ShowLogin renders the token form
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", loginView{Session: middleware.SessionFrom(c)})
}

// Login stores the submitted token
func (h *AuthHandler) Login(c *gin.Context) {
	var form validator.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.Validate(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, formMessage(err))
		return
	}

	token := strings.TrimSpace(form.Token)
	if err := h.store.Set(token); err != nil {
		h.logger.WithError(err).Error("トークンの保存に失敗")
		h.renderLogin(c, http.StatusInternalServerError, msgTokenSaveFailed)
		return
	}

	// 別ユーザーのメモを表示しないよう一覧を取り直す
	h.memos.Invalidate()

	h.logger.WithFields(tokenFields(token)).Info("ログインしました")
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout forgets the stored token
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.store.Clear(); err != nil {
		h.logger.WithError(err).Error("トークンの削除に失敗")
		c.JSON(http.StatusInternalServerError, ErrorResponseDTO{
			Error:   "Failed to logout",
			Message: err.Error(),
		})
		return
	}

	h.memos.Invalidate()
	h.logger.Info("ログアウトしました")
	c.Redirect(http.StatusSeeOther, "/login")
}

// tokenFields JWTとして読めればクレームをログ項目にする。読めなくても保存は妨げない
func tokenFields(token string) logrus.Fields {
	claims, err := tokenstore.Inspect(token)
	if err != nil {
		return logrus.Fields{"token_type": "opaque"}
	}
	return logrus.Fields{
		"token_type": "jwt",
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"expired":    claims.Expired(time.Now()),
	}
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, message string) {
	c.HTML(status, "login.html", loginView{
		Session: middleware.SessionFrom(c),
		Error:   message,
	})
}
