package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StorePebble StoreBackend = "pebble"
	StoreRedis  StoreBackend = "redis"
	StoreMemory StoreBackend = "memory"
)

type Config struct {
	// HTTP API for the web widget
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	// Honour X-Forwarded-For only behind a reverse proxy that sets it
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// In-memory session caches (conversations, game state)
	SessionLimit int           `env:"SESSION_LIMIT" envDefault:"10000"`
	SessionIdle  time.Duration `env:"SESSION_IDLE" envDefault:"30m"`

	// Telegram transport; disabled when the token is empty
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserID      int64   `env:"ADMIN_USER"`
	AdminUsers       []int64 `env:"ADMIN_USERS" envSeparator:":"`
	AdminFilePath    string  `env:"ADMIN_FILE_PATH" envDefault:"data/admins.json"`
	MessageParseMode string  `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`

	// Key-value storage for conversations, game state and analytics
	StoreBackend  StoreBackend `env:"STORE_BACKEND" envDefault:"file"`
	StorePath     string       `env:"STORE_PATH" envDefault:"data/store.json"`
	RedisAddr     string       `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string       `env:"REDIS_PASSWORD"`
	RedisDB       int          `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string       `env:"REDIS_PREFIX" envDefault:"portfolio:"`

	// Interaction log (JSONL)
	InteractionsLogPath string `env:"INTERACTIONS_LOG_PATH" envDefault:"logs/interactions.jsonl"`

	// Optional YAML override of the response table
	ResponsesPath string `env:"RESPONSES_PATH"`

	// Contact relay
	EmailJSServiceID  string        `env:"EMAILJS_SERVICE_ID" envDefault:"YOUR_SERVICE_ID"`
	EmailJSTemplateID string        `env:"EMAILJS_TEMPLATE_ID" envDefault:"YOUR_TEMPLATE_ID"`
	EmailJSPublicKey  string        `env:"EMAILJS_PUBLIC_KEY" envDefault:"YOUR_PUBLIC_KEY"`
	EmailJSEndpoint   string        `env:"EMAILJS_ENDPOINT" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`
	ContactOwnerName  string        `env:"CONTACT_OWNER_NAME" envDefault:"Saitej Chowdary Bodapati"`
	ContactCooldown   time.Duration `env:"CONTACT_COOLDOWN" envDefault:"5s"`

	// Scheduler
	ReportCron string `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DevMode bool `env:"DEV_MODE" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.StoreBackend {
	case StoreFile, StorePebble, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
	return cfg, nil
}

// Admins merges ADMIN_USER into ADMIN_USERS.
func (c *Config) Admins() []int64 {
	out := append([]int64(nil), c.AdminUsers...)
	if c.AdminUserID == 0 {
		return out
	}
	for _, id := range out {
		if id == c.AdminUserID {
			return out
		}
	}
	return append(out, c.AdminUserID)
}
