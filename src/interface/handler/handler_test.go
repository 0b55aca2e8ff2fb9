package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"cat-board/src/cache"
	"cat-board/src/client"
	"cat-board/src/config"
	"cat-board/src/domain"
	"cat-board/src/interface/handler"
	"cat-board/src/logger"
	"cat-board/src/presenter"
	"cat-board/src/repository"
	"cat-board/src/repository/memoapitest"
	"cat-board/src/routes"
	"cat-board/src/tokenstore"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	textLoading = "메모를 불러오는 중..."
	textEmpty   = "아직 메모가 없어요."
	textHint    = "첫 메모를 남겨 보세요!"
	textBanner  = "서버에 연결할 수 없습니다. 백엔드가 실행 중인지 확인해주세요."
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = logger.NewDiscardLogger()
	os.Exit(m.Run())
}

type board struct {
	router *gin.Engine
	api    *memoapitest.Server
	store  *tokenstore.MemoryStore
	memos  *cache.MemoCache
}

func newBoard(t *testing.T, loadWait time.Duration, seed ...domain.Memo) *board {
	t.Helper()

	api := memoapitest.NewServer(seed...)
	t.Cleanup(api.Close)

	log := logger.NewDiscardLogger()
	store := tokenstore.NewMemoryStore("")
	cl := client.New(client.Options{
		BaseURL: api.URL,
		Tokens:  store,
		Timeout: 5 * time.Second,
		Logger:  log,
	})
	memos := cache.NewMemoCache(context.Background(), repository.NewMemoRepository(cl, log), log)
	t.Cleanup(memos.Close)

	r := gin.New()
	routes.SetupRoutes(r,
		config.ServerConfig{AllowedOrigins: []string{"*"}, RateLimitRPS: 1000, RateLimitBurst: 1000},
		store,
		handler.NewMemoHandler(memos, presenter.NewMapper(time.UTC), loadWait, log),
		handler.NewAuthHandler(store, memos, log),
	)

	return &board{router: r, api: api, store: store, memos: memos}
}

func (b *board) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (b *board) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	b.router.ServeHTTP(w, req)
	return w
}

func seedMemos() []domain.Memo {
	return []domain.Memo{
		{ID: 1, Content: "첫 번째 메모", CreatedAt: "2024-01-01T03:00:00Z"},
		{ID: 2, Content: "두 번째 메모", CreatedAt: "2024-01-02T15:30:00Z"},
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"email":   "cat@example.com",
		"type":    "access",
		"exp":     exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestShowBoard(t *testing.T) {
	t.Run("メモなし", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)

		w := b.get("/")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), textEmpty)
		assert.Contains(t, w.Body.String(), textHint)
		assert.NotContains(t, w.Body.String(), textBanner)
	})

	t.Run("メモ一覧", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)

		w := b.get("/")

		body := w.Body.String()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, body, "첫 번째 메모")
		assert.Contains(t, body, "두 번째 메모")
		assert.Contains(t, body, "2024. 01. 01. 03:00")
		assert.Contains(t, body, "2024. 01. 02. 15:30")
		assert.Contains(t, body, "bg-pink-200")
		assert.Contains(t, body, "bg-blue-200")
		assert.Contains(t, body, `action="/memos/1/delete"`)
		assert.NotContains(t, body, textEmpty)
	})

	t.Run("サーバーエラーはバナーと空表示", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)
		b.api.FailStatus.Store(http.StatusInternalServerError)

		w := b.get("/")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), textBanner)
		assert.Contains(t, w.Body.String(), textEmpty)
		assert.NotContains(t, w.Body.String(), "첫 번째 메모")
	})

	t.Run("初回取得中はローディング表示", func(t *testing.T) {
		b := newBoard(t, 10*time.Millisecond, seedMemos()...)
		release := b.api.HoldLists()
		defer release()

		w := b.get("/")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), textLoading)
		assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)

		release()
		assert.Eventually(t, func() bool {
			return strings.Contains(b.get("/").Body.String(), "첫 번째 메모")
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), b.api.ListCalls.Load())
	})

	t.Run("401はログイン画面へ", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)
		b.api.RequireToken("fresh-token")
		require.NoError(t, b.store.Set("stale-token"))

		w := b.get("/")

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		token, err := b.store.Token()
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestCreateMemo(t *testing.T) {
	t.Run("正常作成", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		require.Contains(t, b.get("/").Body.String(), textEmpty)

		w := b.postForm("/memos", url.Values{"content": {"새로운 메모"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		require.Len(t, b.api.Memos(), 1)
		assert.Equal(t, "새로운 메모", b.api.Memos()[0].Content)

		// 作成後の表示はサーバーから取り直した一覧
		assert.Contains(t, b.get("/").Body.String(), "새로운 메모")
		assert.Equal(t, int32(2), b.api.ListCalls.Load())
	})

	t.Run("空白のみは送信しない", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)

		w := b.postForm("/memos", url.Values{"content": {"   "}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "메모 내용을 입력해 주세요.")
		assert.Equal(t, int32(0), b.api.CreateCalls.Load())
	})

	t.Run("長文や制御文字はサーバーに送る", func(t *testing.T) {
		for _, content := range []string{strings.Repeat("가", 2001), "bell\x07memo"} {
			b := newBoard(t, 2*time.Second)

			w := b.postForm("/memos", url.Values{"content": {content}})

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, int32(1), b.api.CreateCalls.Load())
			require.Len(t, b.api.Memos(), 1)
			assert.Equal(t, content, b.api.Memos()[0].Content)
		}
	})

	t.Run("サーバーの拒否メッセージを表示", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		b.api.FailStatus.Store(http.StatusUnprocessableEntity)

		w := b.postForm("/memos", url.Values{"content": {"거절될 메모"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Unprocessable Entity")
		assert.Contains(t, w.Body.String(), `value="거절될 메모"`)
	})

	t.Run("サーバーエラー", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		b.api.FailStatus.Store(http.StatusInternalServerError)

		w := b.postForm("/memos", url.Values{"content": {"남길 메모"}})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "메모를 추가하지 못했습니다.")
		assert.Equal(t, cache.StatusEmpty, b.memos.Snapshot().Status)
	})
}

func TestDeleteMemo(t *testing.T) {
	t.Run("正常削除", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)
		require.Contains(t, b.get("/").Body.String(), "첫 번째 메모")

		w := b.postForm("/memos/1/delete", nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Len(t, b.api.Memos(), 1)
		assert.NotContains(t, b.get("/").Body.String(), "첫 번째 메모")
	})

	t.Run("既に無いメモも成功扱い", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)

		w := b.postForm("/memos/99/delete", nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, int32(1), b.api.DeleteCalls.Load())
	})

	t.Run("不正なID", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)

		for _, id := range []string{"abc", "0", "-1"} {
			w := b.postForm("/memos/"+id+"/delete", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, id)
			assert.Contains(t, w.Body.String(), "잘못된 메모 ID입니다.")
		}
		assert.Equal(t, int32(0), b.api.DeleteCalls.Load())
	})

	t.Run("サーバーエラー", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)
		b.api.FailStatus.Store(http.StatusInternalServerError)

		w := b.postForm("/memos/1/delete", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "메모를 삭제하지 못했습니다.")
		assert.Len(t, b.api.Memos(), 2)
	})
}

func TestLogin(t *testing.T) {
	t.Run("ログインフォーム", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)

		w := b.get("/login")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="token"`)
	})

	t.Run("トークンを保存", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)
		token := signedToken(t, time.Now().Add(time.Hour))
		b.api.RequireToken(token)

		w := b.postForm("/login", url.Values{"token": {token}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		stored, err := b.store.Token()
		require.NoError(t, err)
		assert.Equal(t, token, stored)

		page := b.get("/")
		assert.Equal(t, http.StatusOK, page.Code)
		assert.Contains(t, page.Body.String(), "첫 번째 메모")
		assert.Contains(t, page.Body.String(), "cat@example.com")
	})

	t.Run("JWT以外のトークンも保存", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)
		b.api.RequireToken("opaque-api-token-123")

		w := b.postForm("/login", url.Values{"token": {"  opaque-api-token-123\n"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		stored, err := b.store.Token()
		require.NoError(t, err)
		assert.Equal(t, "opaque-api-token-123", stored)
		assert.Contains(t, b.get("/").Body.String(), "첫 번째 메모")
	})

	t.Run("期限切れでも保存はする", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		token := signedToken(t, time.Now().Add(-time.Hour))

		w := b.postForm("/login", url.Values{"token": {token}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		stored, _ := b.store.Token()
		assert.Equal(t, token, stored)
	})

	t.Run("空のトークン", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)

		w := b.postForm("/login", url.Values{"token": {"   "}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "토큰을 입력해 주세요.")
		stored, _ := b.store.Token()
		assert.Empty(t, stored)
	})

	t.Run("ログアウト", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		require.NoError(t, b.store.Set(signedToken(t, time.Now().Add(time.Hour))))

		w := b.postForm("/logout", nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		stored, _ := b.store.Token()
		assert.Empty(t, stored)
	})
}

func TestListNotes(t *testing.T) {
	t.Run("ノート一覧", func(t *testing.T) {
		b := newBoard(t, 2*time.Second, seedMemos()...)

		w := b.get("/api/notes")

		require.Equal(t, http.StatusOK, w.Code)
		var resp handler.NotesResponseDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Notes, 2)
		assert.Equal(t, "1", resp.Notes[0].ID)
		assert.Equal(t, "첫 번째 메모", resp.Notes[0].Text)
		assert.Equal(t, "bg-pink-200", resp.Notes[0].Color)
		assert.InDelta(t, 0, resp.Notes[0].Rotation, presenter.MaxRotation)
		assert.False(t, resp.IsLoading)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("メモなしは空配列", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)

		w := b.get("/api/notes")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"notes":[]`)
	})

	t.Run("サーバーエラー", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		b.api.FailStatus.Store(http.StatusServiceUnavailable)

		w := b.get("/api/notes")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var resp handler.ErrorResponseDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, textBanner, resp.Message)
	})

	t.Run("401", func(t *testing.T) {
		b := newBoard(t, 2*time.Second)
		b.api.RequireToken("fresh-token")

		w := b.get("/api/notes")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHealth(t *testing.T) {
	b := newBoard(t, 2*time.Second)

	w := b.get("/health")

	require.Equal(t, http.StatusOK, w.Code)
	var resp handler.HealthResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "empty", resp.Cache)
}
