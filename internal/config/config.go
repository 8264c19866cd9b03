// Package config provides newsdesk configuration management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/RobinCoderZhao/newsdesk/internal/news/sources"
	appconfig "github.com/RobinCoderZhao/newsdesk/pkg/config"
	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// Config is the main configuration for newsdesk.
type Config struct {
	LogLevel    string          `yaml:"log_level" env:"NEWSDESK_LOG_LEVEL"`
	HTTPTimeout time.Duration   `yaml:"http_timeout" env:"NEWSDESK_HTTP_TIMEOUT"`
	Providers   ProvidersConfig `yaml:"providers"`
	Storage     storage.Config  `yaml:"storage" envprefix:"NEWSDESK_DB_"`
	Server      ServerConfig    `yaml:"server"`
}

// ProvidersConfig holds one endpoint/key pair per news provider.
type ProvidersConfig struct {
	NewsAPI  sources.Config `yaml:"newsapi" envprefix:"NEWSAPI_"`
	NYT      sources.Config `yaml:"nyt" envprefix:"NYT_"`
	Guardian sources.Config `yaml:"guardian" envprefix:"GUARDIAN_"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr          string `yaml:"addr" env:"NEWSDESK_ADDR"`
	JWTSecret     string `yaml:"jwt_secret" env:"NEWSDESK_JWT_SECRET"` // empty disables auth
	AllowedOrigin string `yaml:"allowed_origin" env:"NEWSDESK_ALLOWED_ORIGIN"`
}

// DefaultConfig returns a Config with the public provider endpoints and a
// SQLite database under the XDG data directory. API keys are left empty.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		HTTPTimeout: sources.DefaultTimeout,
		Providers: ProvidersConfig{
			NewsAPI:  sources.Config{Endpoint: "https://newsapi.org/v2/everything"},
			NYT:      sources.Config{Endpoint: "https://api.nytimes.com/svc/search/v2/articlesearch.json"},
			Guardian: sources.Config{Endpoint: "https://content.guardianapis.com/search"},
		},
		Storage: storage.Config{
			Driver: storage.SQLite,
			DSN:    filepath.Join(xdg.DataHome, "newsdesk", "newsdesk.db"),
		},
		Server: ServerConfig{
			Addr:          ":8080",
			AllowedOrigin: "http://localhost:5173",
		},
	}
}

// DefaultConfigPath is the per-user config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsdesk", "config.yaml")
}

// Load builds the configuration. A .env file in the working directory is
// read first. With an explicit path the file must exist; otherwise
// ./newsdesk.yaml and then DefaultConfigPath are tried.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := appconfig.LoadDotEnv(".env"); err != nil {
		return cfg, err
	}

	if path != "" {
		if err := appconfig.Load(path, &cfg); err != nil {
			return cfg, err
		}
		return cfg, cfg.validate()
	}

	if _, err := appconfig.LoadFirst(&cfg, "newsdesk.yaml", DefaultConfigPath()); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validate checks settings needed at startup. Provider keys are deliberately
// not checked here: a missing key only fails that provider's requests.
func (c Config) validate() error {
	switch c.Storage.Driver {
	case storage.SQLite, storage.Postgres:
	default:
		return fmt.Errorf("storage: unknown driver %q (valid: sqlite, postgres)", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage: dsn is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}
