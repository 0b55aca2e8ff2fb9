package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cat-board/src/interface/handler"
	"cat-board/src/logger"
	"cat-board/src/routes"
	"cat-board/src/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	port     string        // 待ち受けポート
	loadWait time.Duration // 初回取得を待つ時間
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	serveEnv := new(serveFlags)

	cmd := &cobra.Command{
		Use:   "serve [-p port]",
		Short: "Run the board web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, flags, serveEnv, nil)
		},
	}

	cmd.Flags().StringVarP(&serveEnv.port, "port", "p", "", "listen port (default $SERVER_PORT)")
	cmd.Flags().DurationVar(&serveEnv.loadWait, "load-wait", 2*time.Second, "how long a page waits for the first fetch")
	return cmd
}

// runServer serves the board until ctx ends. ready receives the bound
// address once the listener is open.
func runServer(ctx context.Context, flags *rootFlags, serveEnv *serveFlags, ready chan<- string) error {
	cfg := loadConfig(flags)
	if serveEnv.port != "" {
		cfg.Server.Port = serveEnv.port
	}

	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.Directory); err != nil {
		return err
	}
	defer logger.CloseLogger()

	logger.Log.Info("Cat Boardを開始しています")

	a := newApp(ctx, cfg, logger.Log, func() {
		logger.Log.Warn("Memo APIが401を返しました。ログインが必要です")
	})
	defer a.Close()

	// S3アップローダーを初期化（設定が有効な場合）
	var uploader *storage.LogUploader
	if cfg.Log.UploadEnabled {
		var err error
		uploader, err = storage.NewLogUploader(cfg.S3, logger.Log)
		if err != nil {
			logger.Log.WithError(err).Error("S3アップローダーの初期化に失敗")
		} else {
			go uploader.Run(ctx, cfg.Log.Directory, cfg.Log.UploadInterval, cfg.Log.UploadMaxAge, logger.GetCurrentLogFile)
		}
	}

	if logger.Log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true

	// NoRouteハンドラー（404）
	r.NoRoute(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"uri":       c.Request.RequestURI,
			"client_ip": c.ClientIP(),
		}).Warn("404: ルートが見つかりません")
		c.JSON(http.StatusNotFound, handler.ErrorResponseDTO{Error: "Route not found"})
	})

	// NoMethodハンドラー（405）
	r.NoMethod(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"uri":       c.Request.RequestURI,
			"client_ip": c.ClientIP(),
		}).Warn("405: サポートされていないメソッド")
		c.JSON(http.StatusMethodNotAllowed, handler.ErrorResponseDTO{Error: "Method not allowed"})
	})

	routes.SetupRoutes(r, cfg.Server, a.store,
		handler.NewMemoHandler(a.memos, a.mapper, serveEnv.loadWait, logger.Log),
		handler.NewAuthHandler(a.store, a.memos, logger.Log),
	)

	ln, err := net.Listen("tcp", ":"+cfg.Server.Port)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Log.WithFields(logrus.Fields{
		"addr":    ln.Addr().String(),
		"api_url": cfg.API.BaseURL,
	}).Info("サーバーを開始します")
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case <-ctx.Done():
		logger.Log.Info("シャットダウンシグナルを受信しました")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Error("サーバーが停止しました")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("グレースフルシャットダウンに失敗")
	}

	// 最後のログアップロードを実行
	if uploader != nil {
		logger.Log.Info("最後のログアップロードを実行中...")
		if _, err := uploader.UploadOldLogs(shutdownCtx, cfg.Log.Directory, 0, logger.GetCurrentLogFile()); err != nil {
			logger.Log.WithError(err).Error("最後のログアップロードに失敗")
		}
	}

	logger.Log.Info("サーバーを停止しました")
	return nil
}
