package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting, loaded from environment variables.
type Config struct {
	AppEnv           string `env:"APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPListenAddr   string `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	HTTPBasePath     string `env:"HTTP_BASE_PATH"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"packbot"`

	DatabaseURL    string `env:"DATABASE_URL,required"`
	DatabaseSchema string `env:"DATABASE_SCHEMA"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisTLS      bool   `env:"REDIS_TLS" envDefault:"false"`

	GeminiAPIKeys   []string      `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiTimeout   time.Duration `env:"GEMINI_TIMEOUT" envDefault:"30s"`
	GeminiCooldown  time.Duration `env:"GEMINI_COOLDOWN" envDefault:"60s"`
	EmbeddingModel  string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-004"`
	RAGNamespace    string        `env:"RAG_NAMESPACE" envDefault:"knowledge"`
	RAGTopK         int           `env:"RAG_TOP_K" envDefault:"5"`
	SearchAPIKey    string        `env:"SEARCH_API_KEY"`
	SearchEngineID  string        `env:"SEARCH_ENGINE_ID"`
	SearchSiteScope string        `env:"SEARCH_SITE_SCOPE" envDefault:"packbot.in"`

	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber  string `env:"TWILIO_FROM_NUMBER"`
	TwilioContentSIDs string `env:"TWILIO_CONTENT_SIDS"`

	PaymentSecret string `env:"PAYMENT_WEBHOOK_SECRET"`

	AdminAPIKey string   `env:"ADMIN_API_KEY"`
	AdminPhones []string `env:"ADMIN_PHONES" envSeparator:","`

	MediaDir     string `env:"MEDIA_DIR" envDefault:"./data/media"`
	MediaBaseURL string `env:"MEDIA_BASE_URL"`

	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	OrderTTL           time.Duration `env:"ORDER_TTL" envDefault:"24h"`
	BookingTTL         time.Duration `env:"BOOKING_TTL" envDefault:"15m"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	ReminderAfter      time.Duration `env:"REMINDER_AFTER" envDefault:"24h"`
	CatalogSyncEvery   time.Duration `env:"CATALOG_SYNC_EVERY" envDefault:"6h"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if len(c.GeminiAPIKeys) == 0 {
			return fmt.Errorf("GEMINI_API_KEYS must be set in production")
		}
		if c.PaymentSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET must be set in production")
		}
		if c.AdminAPIKey == "" {
			return fmt.Errorf("ADMIN_API_KEY must be set in production")
		}
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.RAGTopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
