package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	TransportLog      = "log"
	TransportTelegram = "telegram"
	TransportRedis    = "redis"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	Storage     string `mapstructure:"STORAGE"`
	DBDSN       string `mapstructure:"DB_DSN"`
	SeedFile    string `mapstructure:"SEED_FILE"`
	LogFile     string `mapstructure:"LOG_FILE"`

	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	RateLimitPerMin int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`

	NotifyTransport string `mapstructure:"NOTIFY_TRANSPORT"`
	NotifyWorkers   int    `mapstructure:"NOTIFY_WORKERS"`
	NotifyQueueSize int    `mapstructure:"NOTIFY_QUEUE_SIZE"`
	TelegramToken   string `mapstructure:"TELEGRAM_TOKEN"`

	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisOutboxKey string `mapstructure:"REDIS_OUTBOX_KEY"`
}

var defaults = map[string]any{
	"ENV":                "development",
	"STORAGE":            StoragePostgres,
	"DB_DSN":             "",
	"SEED_FILE":          "",
	"LOG_FILE":           "",
	"HTTP_ADDR":          ":8080",
	"SHUTDOWN_TIMEOUT":   "10s",
	"RATE_LIMIT_PER_MIN": 120,
	"CORS_ORIGINS":       "*",
	"NOTIFY_TRANSPORT":   TransportLog,
	"NOTIFY_WORKERS":     4,
	"NOTIFY_QUEUE_SIZE":  256,
	"TELEGRAM_TOKEN":     "",
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"REDIS_OUTBOX_KEY":   "mentorbook:notices",
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		// Проверяем обязательные поля
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}

	switch c.NotifyTransport {
	case TransportLog:
	case TransportTelegram:
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required for telegram notifications")
		}
	case TransportRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis notifications")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}

	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be positive")
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive")
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// splitList нормализует список из переменной окружения вида "a, b,c"
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
