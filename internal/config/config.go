// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// ErrInvalidConfig is returned when a loaded configuration is unusable.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Game      GameConfig      `mapstructure:"game"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	API       APIConfig       `mapstructure:"api"`
	Log       LogConfig       `mapstructure:"log"`
}

// GameConfig holds simulation parameters.
type GameConfig struct {
	TickRate     int           `mapstructure:"tick_rate"`
	MaxTickDelta time.Duration `mapstructure:"max_tick_delta"`
	Seed         int64         `mapstructure:"seed"`
	HistorySize  int           `mapstructure:"history_size"`
	GraceSeconds float64       `mapstructure:"grace_seconds"`
	CatalogFile  string        `mapstructure:"catalog_file"`
}

// TickInterval is the wall-clock period between ticks.
func (g GameConfig) TickInterval() time.Duration {
	if g.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(g.TickRate)
}

// StorageConfig selects where snapshots are kept.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	Slot       string `mapstructure:"slot"`
	FileDir    string `mapstructure:"file_dir"` // one <slot>.json per slot
	SQLitePath string `mapstructure:"sqlite_path"`
	Autosave   string `mapstructure:"autosave"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// BotConfig holds Telegram bot configuration. An empty token disables the bot.
type BotConfig struct {
	Token     string        `mapstructure:"token"`
	ChatID    int64         `mapstructure:"chat_id"`    // receives game notices
	NoticeTTL time.Duration `mapstructure:"notice_ttl"` // 0 keeps notices forever
	Cooldown  time.Duration `mapstructure:"cooldown"`   // per-user throttle
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// APIConfig holds the HTTP API configuration. An empty address disables it.
type APIConfig struct {
	Addr  string `mapstructure:"addr"`
	Token string `mapstructure:"token"` // optional bearer token
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. GAME_SEED, STORAGE_DRIVER, BOT_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - defaults and env vars are enough
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite, DriverPostgres, DriverNone:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Game.TickRate <= 0 || c.Game.TickRate > 1000 {
		return fmt.Errorf("%w: tick_rate must be in (0, 1000]", ErrInvalidConfig)
	}
	if c.Storage.Slot == "" {
		return fmt.Errorf("%w: storage slot is empty", ErrInvalidConfig)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Game defaults
	v.SetDefault("game.tick_rate", 60)
	v.SetDefault("game.max_tick_delta", "250ms")
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.history_size", 200)
	v.SetDefault("game.grace_seconds", 60)
	v.SetDefault("game.catalog_file", "")

	// Storage defaults
	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.slot", "default")
	v.SetDefault("storage.file_dir", "data/saves")
	v.SetDefault("storage.sqlite_path", "data/tycoon.db")
	v.SetDefault("storage.autosave", "@every 30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tycoon")
	v.SetDefault("database.name", "tycoon")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Bindings so env-only values reach Unmarshal
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.chat_id", 0)
	v.SetDefault("bot.notice_ttl", "30m")
	v.SetDefault("bot.cooldown", "500ms")
	v.SetDefault("api.addr", "")
	v.SetDefault("api.token", "")

	v.SetDefault("log.level", "info")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
