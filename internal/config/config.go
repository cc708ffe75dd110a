package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 外部プロバイダー（embedding、メール、オブジェクトストレージ）の設定は
// 起動時には必須とせず、使用する操作の時点で検証する。
type Config struct {
	// Database
	DatabaseURL string

	// JWT（セッショントークンの署名・検証）
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Google SSO
	GoogleClientID     string
	GoogleClientSecret string

	// ドメインポリシー（大学メールドメインのサフィックス）
	AllowedEmailDomain string

	// 管理者メール許可リスト（セミコロン区切りをパース済み）
	AdminEmails []string

	// Embedding
	EmbeddingsEndpoint string
	EmbeddingsAPIKey   string
	EmbedInterval      time.Duration

	// メール
	MailAPIKey    string
	MailFrom      string
	MailQueueSize int

	// オブジェクトストレージ（R2/S3互換）
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageAccountID string

	// Cleanup
	CleanupInterval time.Duration
	RetentionDays   int

	// Rate Limit（req/min/user）
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS（セミコロン区切りをパース済み）
	CORSAllowedOrigins []string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// モックモード: embeddingはゼロベクトル、メールはログ出力のみになる
	UseMocks bool
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.JWTIssuer = os.Getenv("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}

	cfg.JWTAudience = os.Getenv("JWT_AUDIENCE")
	if cfg.JWTAudience == "" {
		missing = append(missing, "JWT_AUDIENCE")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.AllowedEmailDomain = getEnvString("ALLOWED_EMAIL_DOMAIN", "@morgan.edu")
	cfg.AdminEmails = splitList(os.Getenv("ADMIN_EMAILS"))
	cfg.EmbeddingsEndpoint = os.Getenv("EMBEDDINGS_ENDPOINT")
	cfg.EmbeddingsAPIKey = os.Getenv("EMBEDDINGS_API_KEY")
	cfg.EmbedInterval = getEnvDuration("EMBED_INTERVAL", 5*time.Minute)
	cfg.MailAPIKey = os.Getenv("MAIL_API_KEY")
	cfg.MailFrom = getEnvString("MAIL_FROM", "noreply@bearfolio.edu")
	cfg.MailQueueSize = getEnvInt("MAIL_QUEUE_SIZE", 256)
	cfg.StorageAccessKey = os.Getenv("STORAGE_ACCESS_KEY")
	cfg.StorageSecretKey = os.Getenv("STORAGE_SECRET_KEY")
	cfg.StorageBucket = os.Getenv("STORAGE_BUCKET")
	cfg.StorageAccountID = os.Getenv("STORAGE_ACCOUNT_ID")
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 6*time.Hour)
	cfg.RetentionDays = getEnvInt("RETENTION_DAYS", 180)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigins = splitList(getEnvString("CORS_ORIGINS", "http://localhost:3000"))
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", true)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.UseMocks = getEnvBool("USE_MOCKS", false)

	return cfg, nil
}

// EmbeddingsConfigured はembeddingプロバイダーが設定済みかを返す。
func (c *Config) EmbeddingsConfigured() bool {
	return c.EmbeddingsEndpoint != "" && c.EmbeddingsAPIKey != ""
}

// StorageConfigured はオブジェクトストレージが設定済みかを返す。
func (c *Config) StorageConfigured() bool {
	return c.StorageAccessKey != "" && c.StorageSecretKey != "" &&
		c.StorageBucket != "" && c.StorageAccountID != ""
}

// splitList はセミコロン区切りの値をパースする。空要素は除去しトリムする。
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ";") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
