package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIBaseURL は公開されているHack or SnoozeサービスのURL。
const DefaultAPIBaseURL = "https://hack-or-snooze-v3.herokuapp.com"

// Config はクライアント側の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Remote API
	APIBaseURL         string
	APITimeout         time.Duration
	APIMaxResponseSize int64
	APIRateLimit       float64 // req/sec
	APIRateBurst       int

	// 保存済み認証情報（セッション再開用）
	StoredUsername string
	StoredToken    string

	// Feed import
	FeedFetchTimeout time.Duration
	FeedMaxSize      int64
}

// ServerConfig はリファレンスサーバーの設定を保持する。
type ServerConfig struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitWrite   int

	// Password
	BcryptCost int

	// Login token retention
	TokenRetentionDays   int
	TokenCleanupInterval time.Duration
}

// LoadDotEnv はpathの.envファイルを環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からクライアントのConfigを読み込む。
// 必須項目はなく、API_BASE_URLが絶対URLでない場合のみエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:         getEnvString("API_BASE_URL", DefaultAPIBaseURL),
		APITimeout:         getEnvDuration("API_TIMEOUT", 10*time.Second),
		APIMaxResponseSize: getEnvInt64("API_MAX_RESPONSE_SIZE", 5242880),
		APIRateLimit:       getEnvFloat("API_RATE_LIMIT", 5),
		APIRateBurst:       getEnvInt("API_RATE_BURST", 10),
		StoredUsername:     os.Getenv("HNS_USERNAME"),
		StoredToken:        os.Getenv("HNS_TOKEN"),
		FeedFetchTimeout:   getEnvDuration("FEED_FETCH_TIMEOUT", 10*time.Second),
		FeedMaxSize:        getEnvInt64("FEED_MAX_SIZE", 5242880),
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL must be an absolute URL: %q", cfg.APIBaseURL)
	}

	return cfg, nil
}

// HasStoredCredentials は保存済みの認証情報が揃っているかを返す。
func (c *Config) HasStoredCredentials() bool {
	return c.StoredUsername != "" && c.StoredToken != ""
}

// LoadServer は環境変数からServerConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.TokenRetentionDays = getEnvInt("TOKEN_RETENTION_DAYS", 180)
	cfg.TokenCleanupInterval = getEnvDuration("TOKEN_CLEANUP_INTERVAL", 24*time.Hour)

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
