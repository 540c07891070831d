package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Telegram Bot
	BotToken        string
	BotAPIBaseURL   string
	NotifierTimeout time.Duration

	// Admin
	AdminIDs []int64

	// Dispatch
	DispatchInterval  time.Duration
	DispatchBatchSize int
	SendRate          float64

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（未設定の変数のみ）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発用。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	adminIDs, err := parseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = adminIDs

	// Optional fields with defaults
	cfg.BotAPIBaseURL = getEnvString("BOT_API_BASE_URL", "https://api.telegram.org")
	cfg.NotifierTimeout = getEnvDuration("NOTIFIER_TIMEOUT", 10*time.Second)
	cfg.DispatchInterval = getEnvDuration("DISPATCH_INTERVAL", time.Minute)
	cfg.DispatchBatchSize = getEnvInt("DISPATCH_BATCH_SIZE", 50)
	cfg.SendRate = getEnvFloat("SEND_RATE", 20.0)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

// parseAdminIDs はカンマ区切りのTelegramユーザーID列をパースする。
// 空文字列は管理者なしとして扱う。
func parseAdminIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
