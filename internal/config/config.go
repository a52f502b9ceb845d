package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramToken    string        `mapstructure:"telegram_token"`
	BotHandleTimeout time.Duration `mapstructure:"bot_handle_timeout"`

	DatabaseDriver     string        `mapstructure:"database_driver"`
	PostgresDSN        string        `mapstructure:"postgres_dsn"`
	SQLitePath         string        `mapstructure:"sqlite_path"`
	StoreRetryAttempts int           `mapstructure:"store_retry_attempts"`
	StoreRetryDelay    time.Duration `mapstructure:"store_retry_delay"`

	// AdminIDs are Telegram ids promoted to admin when they register.
	AdminIDs []int64 `mapstructure:"-"`

	SessionBackend string        `mapstructure:"session_backend"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	RedisURL       string        `mapstructure:"redis_url"`

	NotifyWebhookURL     string        `mapstructure:"notify_webhook_url"`
	NotifyWebhookTimeout time.Duration `mapstructure:"notify_webhook_timeout"`

	BroadcastRate        float64 `mapstructure:"broadcast_rate"`
	BroadcastConcurrency int     `mapstructure:"broadcast_concurrency"`

	APIListen string `mapstructure:"api_listen"`
	APIToken  string `mapstructure:"api_token"`

	TopUsersLimit int `mapstructure:"top_users_limit"`
}

// DSN is the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DatabaseDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.PostgresDSN
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}

	ids, err := ParseAdminIDs(viper.GetString("admin_ids"))
	if err != nil {
		logrus.Fatalf("parsing admin_ids: %v", err)
	}
	cfg.AdminIDs = ids

	return cfg
}

// ParseAdminIDs reads a comma or space separated list of Telegram ids.
func ParseAdminIDs(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})

	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func SetupCommon() {
	// A missing .env is fine, real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded .env")
	}

	viper.SetDefault("database_driver", "postgres")
	viper.SetDefault("sqlite_path", "predlozhka.db")
	viper.SetDefault("store_retry_attempts", 3)
	viper.SetDefault("store_retry_delay", "100ms")
	viper.SetDefault("top_users_limit", 5)
	viper.SetEnvPrefix("PREDLOZHKA")

	viper.MustBindEnv("telegram_token")
	viper.MustBindEnv("database_driver")
	viper.MustBindEnv("postgres_dsn")
	viper.MustBindEnv("sqlite_path")
	viper.MustBindEnv("admin_ids")
	viper.MustBindEnv("redis_url")
	viper.MustBindEnv("notify_webhook_url")
	viper.MustBindEnv("api_token")
	viper.MustBindEnv("log_format")
	viper.AutomaticEnv()
}
