package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// Log InitLogger前でも使えるように標準出力のロガーで初期化しておく
	Log          = logrus.New()
	currentFile  *os.File
	logDirectory = "logs"
)

// InitLogger ロガーを初期化し、ファイル出力を設定
func InitLogger(level, directory string) error {
	Log = logrus.New()

	// ログレベルを設定（不正な値はinfo）
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)

	// JSON形式でログを出力
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	if directory != "" {
		logDirectory = directory
	}

	// ログディレクトリを作成
	if err := os.MkdirAll(logDirectory, 0755); err != nil {
		return fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
	}

	// 新しいログファイルを作成
	if err := rotateLogFile(); err != nil {
		return fmt.Errorf("ログファイルの作成に失敗: %w", err)
	}

	// 標準出力とファイルの両方に出力
	Log.SetOutput(io.MultiWriter(os.Stdout, currentFile))

	Log.WithField("level", parsed.String()).Info("ロガーが初期化されました")
	return nil
}

// InitConsoleLogger CLIコマンド用にファイルを作らず標準エラーへ出力する
func InitConsoleLogger(level string) {
	Log = logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}
	Log.SetLevel(parsed)
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
}

// NewDiscardLogger テスト用に何も出力しないロガーを作成
func NewDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// rotateLogFile 新しいログファイルを作成
func rotateLogFile() error {
	// 既存のファイルを閉じる
	if currentFile != nil {
		currentFile.Close()
	}

	// 新しいファイル名を生成（タイムスタンプ付き）
	filename := fmt.Sprintf("catboard_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(logDirectory, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	currentFile = file
	Log.WithField("file", path).Info("新しいログファイルを作成しました")
	return nil
}

// GetCurrentLogFile 現在のログファイルパスを取得
func GetCurrentLogFile() string {
	if currentFile != nil {
		return currentFile.Name()
	}
	return ""
}

// GetLogDirectory ログディレクトリを取得
func GetLogDirectory() string {
	return logDirectory
}

// CloseLogger ロガーを終了
func CloseLogger() {
	if currentFile != nil {
		Log.Info("ログファイルを閉じます")
		currentFile.Close()
		currentFile = nil
	}
}

// WithFields フィールド付きログエントリを作成
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

// WithField フィールド付きログエントリを作成（単一フィールド）
func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}
