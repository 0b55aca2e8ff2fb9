package cmd

import (
	"context"
	"time"

	"cat-board/src/cache"
	"cat-board/src/client"
	"cat-board/src/config"
	"cat-board/src/presenter"
	"cat-board/src/repository"
	"cat-board/src/tokenstore"

	"github.com/sirupsen/logrus"
)

// app is the wired data-sync layer shared by every command
type app struct {
	cfg    *config.Config
	store  *tokenstore.FileStore
	memos  *cache.MemoCache
	mapper presenter.Mapper
	logger *logrus.Logger
}

// loadConfig reads the environment and applies command line overrides
func loadConfig(flags *rootFlags) *config.Config {
	cfg := config.LoadConfig()
	if flags.apiURL != "" {
		cfg.API.BaseURL = flags.apiURL
	}
	if flags.tokenFile != "" {
		cfg.Auth.StoragePath = flags.tokenFile
	}
	return cfg
}

// newApp wires store -> client -> repository -> cache. onUnauthorized may be nil.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, onUnauthorized func()) *app {
	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		log.WithError(err).WithField("timezone", cfg.Display.Timezone).Warn("タイムゾーンを読み込めないためUTCを使用します")
		loc = time.UTC
	}

	store := tokenstore.NewFileStore(cfg.Auth.StoragePath)
	cl := client.New(client.Options{
		BaseURL:        cfg.API.BaseURL,
		Tokens:         store,
		Timeout:        cfg.API.Timeout,
		Logger:         log,
		OnUnauthorized: onUnauthorized,
	})
	repo := repository.NewMemoRepository(cl, log)

	return &app{
		cfg:    cfg,
		store:  store,
		memos:  cache.NewMemoCache(ctx, repo, log),
		mapper: presenter.NewMapper(loc),
		logger: log,
	}
}

func (a *app) Close() {
	a.memos.Close()
}
