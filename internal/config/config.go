package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
	DriverMemory   = "memory"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN" env-required:"true"`

	StorageDriver string `env:"STORAGE_DRIVER" env-default:"postgres"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	SupabaseURL   string `env:"SUPABASE_URL"`
	SupabaseKey   string `env:"SUPABASE_KEY"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`

	Timezone             string        `env:"TIMEZONE" env-default:"America/Sao_Paulo"`
	SessionTTL           time.Duration `env:"SESSION_TTL" env-default:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
	ReminderInterval     time.Duration `env:"REMINDER_INTERVAL" env-default:"1m"`
	ReminderEnabled      bool          `env:"REMINDER_ENABLED" env-default:"true"`
	DeliveryMaxChars     int           `env:"DELIVERY_MAX_CHARS" env-default:"4000"`
	BackgroundTimeout    time.Duration `env:"BACKGROUND_TIMEOUT" env-default:"2m"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`

	location *time.Location
}

// LoadConfig читает .env, если он есть, затем переменные окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate проверяет значения и загружает часовой пояс
func (c *Config) Validate() error {
	var errs []error

	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for postgres storage"))
		}
	case DriverSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required for supabase storage"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.AnthropicAPIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	c.location = loc

	durations := map[string]time.Duration{
		"SESSION_TTL":            c.SessionTTL,
		"SESSION_SWEEP_INTERVAL": c.SessionSweepInterval,
		"REMINDER_INTERVAL":      c.ReminderInterval,
		"BACKGROUND_TIMEOUT":     c.BackgroundTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.DeliveryMaxChars <= 0 {
		errs = append(errs, errors.New("DELIVERY_MAX_CHARS must be positive"))
	}

	return errors.Join(errs...)
}

// Location возвращает часовой пояс пользователей
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// TranscriptionEnabled сообщает, настроено ли распознавание голосовых
func (c *Config) TranscriptionEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// DatabaseConfig содержит параметры, нужные только для миграций
type DatabaseConfig struct {
	DSN string `env:"DATABASE_DSN" env-required:"true"`
}

// LoadDatabaseConfig читает строку подключения к PostgreSQL
func LoadDatabaseConfig() (*DatabaseConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg DatabaseConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	return &cfg, nil
}
