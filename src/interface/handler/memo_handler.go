package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cat-board/src/cache"
	"cat-board/src/client"
	"cat-board/src/domain"
	"cat-board/src/middleware"
	"cat-board/src/presenter"
	"cat-board/src/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MemoCache is the subset of the memo query cache the board uses
type MemoCache interface {
	Load(ctx context.Context) cache.State
	Snapshot() cache.State
	Create(ctx context.Context, req domain.CreateMemoRequest) (*domain.Memo, error)
	Remove(ctx context.Context, id int64) error
	Invalidate()
}

// MemoHandler handles the board pages and the note API
type MemoHandler struct {
	memos     MemoCache
	mapper    presenter.Mapper
	validator *validator.CustomValidator
	logger    *logrus.Logger
	loadWait  time.Duration
}

// NewMemoHandler creates a new memo handler. loadWait bounds how long a page
// waits for the first fetch before rendering the loading state.
func NewMemoHandler(memos MemoCache, mapper presenter.Mapper, loadWait time.Duration, logger *logrus.Logger) *MemoHandler {
	return &MemoHandler{
		memos:     memos,
		mapper:    mapper,
		validator: validator.NewCustomValidator(),
		logger:    logger,
		loadWait:  loadWait,
	}
}

// ShowBoard renders the board
func (h *MemoHandler) ShowBoard(c *gin.Context) {
	h.renderBoard(c, http.StatusOK, h.load(c), boardView{})
}

// CreateMemo adds a memo from the board form
func (h *MemoHandler) CreateMemo(c *gin.Context) {
	var form validator.CreateMemoForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.WithError(err).Error("リクエストのバインドに失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	// 空のメモはAPIを呼ばずに弾く
	if err := h.validator.Validate(&form); err != nil {
		h.logger.WithError(err).Debug("メモ入力のバリデーションに失敗")
		h.renderBoard(c, http.StatusBadRequest, h.memos.Snapshot(), boardView{
			FormError: formMessage(err),
			Content:   form.Content,
		})
		return
	}

	memo, err := h.memos.Create(c.Request.Context(), domain.CreateMemoRequest{Content: form.Content})
	if err != nil {
		if client.IsUnauthorized(err) {
			h.redirectToLogin(c)
			return
		}

		h.logger.WithError(err).Error("メモの作成に失敗")
		status := http.StatusBadGateway
		message := msgCreateFailed
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			if ve.Message != "" {
				message = ve.Message
			}
		}
		h.renderBoard(c, status, h.memos.Snapshot(), boardView{
			FormError: message,
			Content:   form.Content,
		})
		return
	}

	h.logger.WithField("memo_id", memo.ID).Info("メモを作成しました")
	c.Redirect(http.StatusSeeOther, "/")
}

// DeleteMemo removes a note from the board
func (h *MemoHandler) DeleteMemo(c *gin.Context) {
	id, err := presenter.ParseNoteID(c.Param("id"))
	if err != nil {
		h.renderBoard(c, http.StatusBadRequest, h.memos.Snapshot(), boardView{FormError: msgInvalidNoteID})
		return
	}

	if err := h.memos.Remove(c.Request.Context(), id); err != nil {
		if client.IsUnauthorized(err) {
			h.redirectToLogin(c)
			return
		}
		h.logger.WithError(err).WithField("memo_id", id).Error("メモの削除に失敗")
		h.renderBoard(c, http.StatusBadGateway, h.memos.Snapshot(), boardView{FormError: msgDeleteFailed})
		return
	}

	h.logger.WithField("memo_id", id).Info("メモを削除しました")
	c.Redirect(http.StatusSeeOther, "/")
}

// ListNotes returns the board as JSON
func (h *MemoHandler) ListNotes(c *gin.Context) {
	state := h.load(c)

	if state.Error != nil {
		if client.IsUnauthorized(state.Error) {
			c.JSON(http.StatusUnauthorized, ErrorResponseDTO{
				Error:   "Unauthorized",
				Message: "로그인이 필요합니다.",
			})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponseDTO{
			Error:   "Failed to list memos",
			Message: msgServerUnavailable,
		})
		return
	}

	notes, err := h.mapper.ToNotes(state.Data)
	if err != nil {
		h.logger.WithError(err).Error("メモの表示変換に失敗")
		c.JSON(http.StatusInternalServerError, ErrorResponseDTO{
			Error:   "Failed to render memos",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, NotesResponseDTO{
		Notes:     toNoteDTOs(notes),
		IsLoading: state.IsLoading,
		Status:    state.Status.String(),
	})
}

// Health reports liveness and the cache status
func (h *MemoHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponseDTO{
		Status: "ok",
		Cache:  h.memos.Snapshot().Status.String(),
	})
}

// load waits up to loadWait for the in-flight fetch
func (h *MemoHandler) load(c *gin.Context) cache.State {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.loadWait)
	defer cancel()
	state := h.memos.Load(ctx)
	c.Set(middleware.CacheStatusKey, state.Status.String())
	return state
}

// renderBoard fills view from state and renders board.html
func (h *MemoHandler) renderBoard(c *gin.Context, status int, state cache.State, view boardView) {
	if client.IsUnauthorized(state.Error) {
		h.redirectToLogin(c)
		return
	}

	c.Set(middleware.CacheStatusKey, state.Status.String())
	view.Session = middleware.SessionFrom(c)
	switch {
	case state.Error != nil:
		view.ServerError = true
	case state.Data == nil && state.IsLoading:
		view.Loading = true
	default:
		notes, err := h.mapper.ToNotes(state.Data)
		if err != nil {
			h.logger.WithError(err).Error("メモの表示変換に失敗")
			_ = c.Error(err)
			view.ServerError = true
			if status == http.StatusOK {
				status = http.StatusInternalServerError
			}
			break
		}
		view.Notes = notes
		view.Refreshing = state.IsLoading
	}

	c.HTML(status, "board.html", view)
}

func (h *MemoHandler) redirectToLogin(c *gin.Context) {
	h.logger.WithField("uri", c.Request.RequestURI).Warn("認証エラーのためログイン画面へリダイレクト")
	c.Redirect(http.StatusSeeOther, "/login")
}

// formMessage バリデーションエラーから表示用メッセージを取り出す
func formMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve.First()
	}
	return err.Error()
}
