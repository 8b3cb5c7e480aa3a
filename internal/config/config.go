package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	OMDB       OMDBConfig       `mapstructure:"omdb"`
	Favourites FavouritesConfig `mapstructure:"favourites"`
	Session    SessionConfig    `mapstructure:"session"`
	Reporting  ReportingConfig  `mapstructure:"reporting"`
	Health     HealthConfig     `mapstructure:"health"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// RateLimit caps provider-backed requests per client IP per minute.
	// Zero disables the limit.
	RateLimit int `mapstructure:"rate_limit"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// OMDBConfig holds OMDb provider configuration.
type OMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Timeout      int    `mapstructure:"timeout"` // seconds
	DefaultQuery string `mapstructure:"default_query"`
	Mock         bool   `mapstructure:"mock"`
	// CacheTTL enables the detail/search cache when positive (seconds).
	CacheTTL int `mapstructure:"cache_ttl"`
}

// FavouritesConfig selects where the favourites blob is stored.
type FavouritesConfig struct {
	Backend  string `mapstructure:"backend"` // "sqlite" or "file"
	FilePath string `mapstructure:"file_path"`
}

// SessionConfig controls view-state sessions.
type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	CleanupCron string        `mapstructure:"cleanup_cron"`
}

// HealthConfig controls the periodic provider and storage checks.
type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// ReportingConfig holds optional error reporting configuration.
type ReportingConfig struct {
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8484,
			RateLimit: 120,
		},
		Database: DatabaseConfig{
			Path: "./data/movieshelf.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		OMDB: OMDBConfig{
			BaseURL:      "http://www.omdbapi.com/",
			Timeout:      10,
			DefaultQuery: "top",
		},
		Favourites: FavouritesConfig{
			Backend:  BackendSQLite,
			FilePath: "./data/favourites.json",
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Minute,
			CleanupCron: "*/5 * * * *",
		},
		Reporting: ReportingConfig{
			Environment: "local",
		},
		Health: HealthConfig{
			CheckInterval: 15 * time.Minute,
		},
	}
}

// Load reads configuration from .env, file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.movieshelf")
	}

	v.SetEnvPrefix("MOVIESHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The bare API_KEY variable is what existing .env files carry.
	if cfg.OMDB.APIKey == "" {
		cfg.OMDB.APIKey = os.Getenv("API_KEY")
	}
	if cfg.OMDB.APIKey == "" {
		cfg.OMDB.APIKey = EmbeddedOMDBKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Favourites.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("invalid favourites backend %q", c.Favourites.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit %d", c.Server.RateLimit)
	}
	if c.OMDB.BaseURL == "" {
		return errors.New("omdb base_url is required")
	}
	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("omdb.api_key", "")
	v.SetDefault("omdb.base_url", d.OMDB.BaseURL)
	v.SetDefault("omdb.timeout", d.OMDB.Timeout)
	v.SetDefault("omdb.default_query", d.OMDB.DefaultQuery)
	v.SetDefault("omdb.mock", false)
	v.SetDefault("omdb.cache_ttl", 0)

	v.SetDefault("favourites.backend", d.Favourites.Backend)
	v.SetDefault("favourites.file_path", d.Favourites.FilePath)

	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.cleanup_cron", d.Session.CleanupCron)

	v.SetDefault("reporting.sentry_dsn", "")
	v.SetDefault("reporting.environment", d.Reporting.Environment)

	v.SetDefault("health.check_interval", d.Health.CheckInterval)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FindAvailablePort returns the first port starting at start that can be
// bound, trying at most attempts ports.
func FindAvailablePort(host string, start, attempts int) (int, error) {
	for port := start; port < start+attempts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, start+attempts-1)
}
