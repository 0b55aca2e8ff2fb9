package logger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cat-board/src/logger"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	t.Run("正常初期化", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")

		err := logger.InitLogger("info", dir)
		require.NoError(t, err)
		defer logger.CloseLogger()

		assert.NotNil(t, logger.Log)
		assert.Equal(t, logrus.InfoLevel, logger.Log.Level)
		assert.DirExists(t, dir)
		assert.Equal(t, dir, logger.GetLogDirectory())

		logFile := logger.GetCurrentLogFile()
		assert.NotEmpty(t, logFile)
		assert.FileExists(t, logFile)
	})

	t.Run("ログレベル設定", func(t *testing.T) {
		err := logger.InitLogger("debug", t.TempDir())
		require.NoError(t, err)
		defer logger.CloseLogger()

		assert.Equal(t, logrus.DebugLevel, logger.Log.Level)
	})

	t.Run("不正なログレベルはinfo", func(t *testing.T) {
		err := logger.InitLogger("loud", t.TempDir())
		require.NoError(t, err)
		defer logger.CloseLogger()

		assert.Equal(t, logrus.InfoLevel, logger.Log.Level)
	})
}

func TestLoggerFunctions(t *testing.T) {
	err := logger.InitLogger("info", t.TempDir())
	require.NoError(t, err)
	defer logger.CloseLogger()

	t.Run("WithFields機能", func(t *testing.T) {
		logger.WithFields(logrus.Fields{
			"memo_id": 42,
			"action":  "create",
		}).Info("メモ作成テスト")

		content, err := os.ReadFile(logger.GetCurrentLogFile())
		require.NoError(t, err)

		assert.Contains(t, string(content), "memo_id")
		assert.Contains(t, string(content), "create")
	})

	t.Run("WithField機能", func(t *testing.T) {
		logger.WithField("component", "cache").Info("コンポーネントテスト")

		content, err := os.ReadFile(logger.GetCurrentLogFile())
		require.NoError(t, err)

		assert.Contains(t, string(content), "component")
		assert.Contains(t, string(content), "cache")
	})
}

func TestLogFileName(t *testing.T) {
	err := logger.InitLogger("info", t.TempDir())
	require.NoError(t, err)
	defer logger.CloseLogger()

	fileName := filepath.Base(logger.GetCurrentLogFile())
	assert.Regexp(t, `^catboard_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.log$`, fileName)
}

func TestLoggerConcurrency(t *testing.T) {
	err := logger.InitLogger("info", t.TempDir())
	require.NoError(t, err)
	defer logger.CloseLogger()

	const numGoroutines = 10
	const numLogs = 50

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numLogs; j++ {
				logger.WithFields(logrus.Fields{
					"goroutine": id,
					"iteration": j,
				}).Info("並行テストログ")
			}
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("テストがタイムアウトしました")
		}
	}

	stat, err := os.Stat(logger.GetCurrentLogFile())
	require.NoError(t, err)
	assert.Greater(t, stat.Size(), int64(0))
}

func TestNewDiscardLogger(t *testing.T) {
	l := logger.NewDiscardLogger()
	assert.NotPanics(t, func() {
		l.WithField("k", "v").Error("破棄される")
	})
}
