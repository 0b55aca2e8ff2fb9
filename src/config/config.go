package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config アプリケーション設定
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Auth    AuthConfig
	Display DisplayConfig
	Log     LogConfig
	S3      S3Config
}

// ServerConfig ボードサーバー設定
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
}

// APIConfig リモートMemo APIの接続設定
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig トークン保存先
type AuthConfig struct {
	StoragePath string
}

// DisplayConfig 付箋の表示設定
type DisplayConfig struct {
	Timezone string
}

// LogConfig ログ設定
type LogConfig struct {
	Level          string
	Directory      string
	UploadEnabled  bool
	UploadMaxAge   time.Duration
	UploadInterval time.Duration
}

// S3Config S3設定
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
}

// LoadConfig .envと環境変数から設定を読み込み
func LoadConfig() *Config {
	// .envが無くてもエラーにしない
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 20),
			RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("MEMO_API_BASE_URL", "https://api-board.go-to-learn.net/api"), "/"),
			Timeout: getDurationEnv("MEMO_API_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			StoragePath: getEnv("TOKEN_STORAGE_PATH", defaultStoragePath()),
		},
		Display: DisplayConfig{
			Timezone: getEnv("DISPLAY_TIMEZONE", "Asia/Seoul"),
		},
		Log: LogConfig{
			Level:          getEnv("LOG_LEVEL", "info"),
			Directory:      getEnv("LOG_DIRECTORY", "logs"),
			UploadEnabled:  getBoolEnv("LOG_UPLOAD_ENABLED", false),
			UploadMaxAge:   getDurationEnv("LOG_UPLOAD_MAX_AGE", 24*time.Hour),
			UploadInterval: getDurationEnv("LOG_UPLOAD_INTERVAL", 1*time.Hour),
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", "http://localhost:9000"), // MinIO用のデフォルト
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "cat-board-logs"),
			UseSSL:          getBoolEnv("S3_USE_SSL", false),
		},
	}
}

// defaultStoragePath ホームディレクトリ配下のトークン保存ファイル
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".catboard", "storage.json")
	}
	return filepath.Join(home, ".catboard", "storage.json")
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv 環境変数をboolで取得
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv 環境変数をintで取得
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv 環境変数をtime.Durationで取得
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv カンマ区切りの環境変数をスライスで取得
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
