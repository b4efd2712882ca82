package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	WhatsApp      WhatsAppConfig
	Classifier    ClassifierConfig
	CORS          CORSConfig
	Log           LogConfig
	Reports       ReportsConfig
	Notifications NotificationsConfig
	Webhook       WebhookConfig
	History       HistoryConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// WhatsAppConfig holds Cloud API credentials for the messaging channel.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	APIBaseURL    string
	SendTimeout   time.Duration
}

// ClassifierConfig configures the intent classifier provider chain.
// APIKeys and Models are zipped positionally; when Models is shorter the
// first model is reused for the remaining keys.
type ClassifierConfig struct {
	APIKeys        []string
	Models         []string
	RequestTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportsConfig configures attendance report artifact generation.
type ReportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Format          string
	PublicBaseURL   string
}

// NotificationsConfig tunes the parent notification broadcaster.
type NotificationsConfig struct {
	DefaultThreshold int
	MaxConcurrent    int
}

// WebhookConfig tunes inbound event processing.
type WebhookConfig struct {
	Workers    int
	BufferSize int
	DedupTTL   time.Duration
}

// HistoryConfig bounds conversation context forwarded to the classifier.
type HistoryConfig struct {
	MaxTurns int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.WhatsApp = WhatsAppConfig{
		AccessToken:   v.GetString("WHATSAPP_ACCESS_TOKEN"),
		PhoneNumberID: v.GetString("WHATSAPP_PHONE_NUMBER_ID"),
		VerifyToken:   v.GetString("WHATSAPP_VERIFY_TOKEN"),
		APIBaseURL:    v.GetString("WHATSAPP_API_BASE_URL"),
		SendTimeout:   parseDuration(v.GetString("WHATSAPP_SEND_TIMEOUT"), 15*time.Second),
	}

	cfg.Classifier = ClassifierConfig{
		APIKeys:        splitAndTrim(v.GetString("CLASSIFIER_API_KEYS")),
		Models:         splitAndTrim(v.GetString("CLASSIFIER_MODELS")),
		RequestTimeout: parseDuration(v.GetString("CLASSIFIER_TIMEOUT"), 30*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		Format:          v.GetString("REPORTS_FORMAT"),
		PublicBaseURL:   v.GetString("REPORTS_PUBLIC_BASE_URL"),
	}

	cfg.Notifications = NotificationsConfig{
		DefaultThreshold: v.GetInt("NOTIFY_DEFAULT_THRESHOLD"),
		MaxConcurrent:    v.GetInt("NOTIFY_MAX_CONCURRENT"),
	}

	cfg.Webhook = WebhookConfig{
		Workers:    v.GetInt("WEBHOOK_WORKERS"),
		BufferSize: v.GetInt("WEBHOOK_BUFFER_SIZE"),
		DedupTTL:   parseDuration(v.GetString("WEBHOOK_DEDUP_TTL"), 24*time.Hour),
	}

	cfg.History = HistoryConfig{
		MaxTurns: v.GetInt("HISTORY_MAX_TURNS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_bot")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("WHATSAPP_ACCESS_TOKEN", "")
	v.SetDefault("WHATSAPP_PHONE_NUMBER_ID", "")
	v.SetDefault("WHATSAPP_VERIFY_TOKEN", "dev_verify_token")
	v.SetDefault("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("WHATSAPP_SEND_TIMEOUT", "15s")

	v.SetDefault("CLASSIFIER_API_KEYS", "")
	v.SetDefault("CLASSIFIER_MODELS", "gpt-4o-mini")
	v.SetDefault("CLASSIFIER_TIMEOUT", "30s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REPORTS_STORAGE_DIR", "./reports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_FORMAT", "csv")
	v.SetDefault("REPORTS_PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("NOTIFY_DEFAULT_THRESHOLD", 75)
	v.SetDefault("NOTIFY_MAX_CONCURRENT", 4)

	v.SetDefault("WEBHOOK_WORKERS", 2)
	v.SetDefault("WEBHOOK_BUFFER_SIZE", 32)
	v.SetDefault("WEBHOOK_DEDUP_TTL", "24h")

	v.SetDefault("HISTORY_MAX_TURNS", 6)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
