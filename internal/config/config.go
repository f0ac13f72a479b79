package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hray3182/ledgerline/internal/models"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	AI        AIConfig        `mapstructure:"ai"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	URI string `mapstructure:"uri"`
}

type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LedgerConfig holds the posting rules for unattended obligations.
type LedgerConfig struct {
	DefaultAccountID   string        `mapstructure:"default_account_id"`
	DefaultAccountType string        `mapstructure:"default_account_type"`
	PendingMaxAge      time.Duration `mapstructure:"pending_max_age"`
}

type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	RunOnStartup bool          `mapstructure:"run_on_startup"`
}

type AIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads an optional .env file, then an optional config file
// (LEDGERLINE_CONFIG or ./ledgerline.toml), then environment variables.
// Nested keys map to env names with "." replaced by "_", e.g. ai.api_key -> AI_API_KEY.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("LEDGERLINE_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ledgerline")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && os.Getenv("LEDGERLINE_CONFIG") != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "America/Lima")
	v.SetDefault("database.uri", "")
	v.SetDefault("store.backend", StoreBackendPostgres)
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("ledger.default_account_id", "")
	v.SetDefault("ledger.default_account_type", "bcp")
	v.SetDefault("ledger.pending_max_age", 7*24*time.Hour)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.run_on_startup", true)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "openai/gpt-4o-mini")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("http.addr", ":8080")
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendPostgres:
		if c.Database.URI == "" {
			return errors.New("DATABASE_URI is required for the postgres store")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if !models.AccountType(c.Ledger.DefaultAccountType).IsValid() {
		return fmt.Errorf("invalid LEDGER_DEFAULT_ACCOUNT_TYPE %q", c.Ledger.DefaultAccountType)
	}
	if c.Store.Timeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	if c.Ledger.PendingMaxAge <= 0 {
		return errors.New("LEDGER_PENDING_MAX_AGE must be positive")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return errors.New("SCHEDULER_INTERVAL must be positive")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

// Location returns the timezone that defines "today" for obligations.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
