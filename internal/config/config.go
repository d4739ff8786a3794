// Package config loads service settings from the environment, an optional
// .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. Never use it in production.
const DevJWTSecret = "dev_jwt_secret"

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort          string
	DatabaseDriver   string
	DatabaseDSN      string
	JWTSecret        string
	TokenTTL         time.Duration
	RabbitMQURL      string
	LocalStoreDir    string
	AdminEmail       string
	AdminPassword    string
	TrackerInterval  time.Duration
	OutboxInterval   time.Duration
	OutboxMaxBackoff time.Duration
	LogLevel         string
	LogDevelopment   bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:configurator.db?cache=shared")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOCAL_STORE_DIR", "./data/local")
	v.SetDefault("ADMIN_EMAIL", "admin@koenigsegg.com")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("TRACKER_INTERVAL", "30s")
	v.SetDefault("OUTBOX_INTERVAL", "15s")
	v.SetDefault("OUTBOX_MAX_BACKOFF", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
}

// Load reads .env (if present), then the file named by CONFIG_FILE (if set),
// then environment variables, which win over both.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		AppPort:          v.GetString("APP_PORT"),
		DatabaseDriver:   strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		TokenTTL:         v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:      strings.TrimSpace(v.GetString("RABBITMQ_URL")),
		LocalStoreDir:    v.GetString("LOCAL_STORE_DIR"),
		AdminEmail:       v.GetString("ADMIN_EMAIL"),
		AdminPassword:    v.GetString("ADMIN_PASSWORD"),
		TrackerInterval:  v.GetDuration("TRACKER_INTERVAL"),
		OutboxInterval:   v.GetDuration("OUTBOX_INTERVAL"),
		OutboxMaxBackoff: v.GetDuration("OUTBOX_MAX_BACKOFF"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogDevelopment:   v.GetBool("LOG_DEVELOPMENT"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"TOKEN_TTL":          c.TokenTTL,
		"TRACKER_INTERVAL":   c.TrackerInterval,
		"OUTBOX_INTERVAL":    c.OutboxInterval,
		"OUTBOX_MAX_BACKOFF": c.OutboxMaxBackoff,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	return nil
}
