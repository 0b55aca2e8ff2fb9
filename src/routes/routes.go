package routes

import (
	"cat-board/src/config"
	"cat-board/src/interface/handler"
	"cat-board/src/middleware"
	"cat-board/src/tokenstore"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the board pages and the note API
func SetupRoutes(r *gin.Engine, cfg config.ServerConfig, store tokenstore.Store, memoHandler *handler.MemoHandler, authHandler *handler.AuthHandler) {
	r.SetHTMLTemplate(handler.Templates())

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	r.GET("/health", memoHandler.Health) // GET /health

	board := r.Group("/")
	board.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	board.Use(middleware.SessionMiddleware(store))
	{
		// ボード画面
		board.GET("", memoHandler.ShowBoard)                   // GET /
		board.POST("memos", memoHandler.CreateMemo)            // POST /memos
		board.POST("memos/:id/delete", memoHandler.DeleteMemo) // POST /memos/:id/delete

		// トークンの保存・削除
		board.GET("login", authHandler.ShowLogin) // GET /login
		board.POST("login", authHandler.Login)    // POST /login
		board.POST("logout", authHandler.Logout)  // POST /logout
	}

	api := r.Group("/api")
	api.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		api.GET("/notes", memoHandler.ListNotes) // GET /api/notes
	}
}
