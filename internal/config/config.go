package config

import (
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	CallbackStoreMemory = "memory"
	CallbackStoreRedis  = "redis"
)

type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_TOKEN" required:"true"`
	Environment   string `envconfig:"ENV" default:"development"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	DBDSN         string `envconfig:"DB_DSN"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR"`

	CallbackStore  string        `envconfig:"CALLBACK_STORE" default:"memory"`
	CallbackSecret string        `envconfig:"CALLBACK_SECRET"`
	CallbackTTL    time.Duration `envconfig:"CALLBACK_TTL" default:"48h"`
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`

	AdminIDs    []int64 `envconfig:"ADMIN_IDS"`
	Timezone    string  `envconfig:"TIMEZONE" default:"Europe/Warsaw"`
	MetricsAddr string  `envconfig:"METRICS_ADDR" default:":9090"`
	SweepSpec   string  `envconfig:"SWEEP_SPEC" default:"@every 10m"`

	location *time.Location
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize проверяет сочетания полей и заполняет производные значения
func (c *Config) Normalize() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for %s storage", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.CallbackStore {
	case CallbackStoreMemory:
	case CallbackStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for %s callback store", CallbackStoreRedis)
		}
	default:
		return fmt.Errorf("unknown CALLBACK_STORE %q", c.CallbackStore)
	}

	if c.CallbackTTL <= 0 {
		return fmt.Errorf("CALLBACK_TTL must be positive, got %s", c.CallbackTTL)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location возвращает часовой пояс расписания
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Secret возвращает ключ подписи токенов. Без CALLBACK_SECRET ключ случайный,
// и кнопки прошлых запусков становятся устаревшими.
func (c *Config) Secret() ([]byte, error) {
	if c.CallbackSecret != "" {
		return []byte(c.CallbackSecret), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate callback secret: %w", err)
	}
	return key, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
