package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// HTTP
	Port string `env:"PORT" envDefault:"3000"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/netcodigo.db"`

	// Master IMAP account, overrides the stored accounts when set
	IMAPUser     string `env:"IMAP_USER"`
	IMAPPassword string `env:"IMAP_PASSWORD"`
	IMAPHost     string `env:"IMAP_HOST" envDefault:"imap.gmail.com"`
	IMAPPort     int    `env:"IMAP_PORT" envDefault:"993"`

	// Email
	IMAPIdleTimeout    time.Duration `env:"IMAP_IDLE_TIMEOUT" envDefault:"25m"`
	IMAPDialTimeout    time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`
	IMAPPollInterval   time.Duration `env:"IMAP_POLL_INTERVAL" envDefault:"1m"`    // Used when the server lacks IDLE
	IMAPReconnectDelay time.Duration `env:"IMAP_RECONNECT_DELAY" envDefault:"10s"` // 0 disables reconnects

	// Settings overrides
	AppMode           string `env:"APP_MODE"` // "imap" or "mailgun"
	MonitoredEmail    string `env:"MONITORED_EMAIL"`
	MailgunSigningKey string `env:"MAILGUN_SIGNING_KEY"`

	// Security
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// Result store
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"memory"` // "memory" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"REDIS_KEY" envDefault:"netcodigo:latest"`

	// Extra browser origins allowed on /ws, besides the serving host
	WSAllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	// Telegram notifications (optional)
	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  int64  `env:"TELEGRAM_CHAT_ID"`
	TelegramTopicID int    `env:"TELEGRAM_TOPIC_ID"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// TelegramEnabled returns true if Telegram notifications are configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// MasterAccountSet returns true if the IMAP account comes from the environment
func (c *Config) MasterAccountSet() bool {
	return c.IMAPUser != "" && c.IMAPPassword != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate encryption key length (32 bytes for AES-256)
	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}

	switch cfg.AppMode {
	case "", "imap", "mailgun":
	default:
		return nil, fmt.Errorf("APP_MODE must be imap or mailgun, got %q", cfg.AppMode)
	}

	switch cfg.StoreBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be memory or redis, got %q", cfg.StoreBackend)
	}

	return cfg, nil
}
