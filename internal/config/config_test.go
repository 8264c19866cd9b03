package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"

	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Providers.Guardian.Endpoint != "https://content.guardianapis.com/search" {
		t.Fatalf("unexpected guardian endpoint: %q", cfg.Providers.Guardian.Endpoint)
	}
	if cfg.Providers.NYT.APIKey != "" {
		t.Fatal("expected API keys to be empty by default")
	}
	if cfg.Storage.Driver != storage.SQLite {
		t.Fatalf("expected sqlite, got %s", cfg.Storage.Driver)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.HTTPTimeout)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	content := `
log_level: debug
http_timeout: 3s
providers:
  nyt:
    api_key: from-file
  guardian:
    endpoint: https://guardian.test/search
storage:
  driver: sqlite
  dsn: /tmp/newsdesk-test.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GUARDIAN_API_KEY", "g-key")
	t.Setenv("NYT_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", cfg.HTTPTimeout)
	}
	if cfg.Providers.NYT.APIKey != "from-env" {
		t.Fatalf("expected env to override file, got %q", cfg.Providers.NYT.APIKey)
	}
	if cfg.Providers.Guardian.Endpoint != "https://guardian.test/search" || cfg.Providers.Guardian.APIKey != "g-key" {
		t.Fatalf("unexpected guardian config: %+v", cfg.Providers.Guardian)
	}
	if cfg.Providers.NewsAPI.Endpoint != "https://newsapi.org/v2/everything" {
		t.Fatalf("expected default newsapi endpoint to survive, got %q", cfg.Providers.NewsAPI.Endpoint)
	}
}

func TestLoad_NoFileUsesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	xdg.Reload()
	t.Setenv("NEWSDESK_DB_DRIVER", "postgres")
	t.Setenv("NEWSDESK_DB_DSN", "postgres://localhost/newsdesk")
	if err := os.WriteFile(".env", []byte("NEWSAPI_API_KEY=dotenv-key\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEWSAPI_API_KEY", "")
	os.Unsetenv("NEWSAPI_API_KEY")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != storage.Postgres || cfg.Storage.DSN != "postgres://localhost/newsdesk" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Providers.NewsAPI.APIKey != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.Providers.NewsAPI.APIKey)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("storage:\n  driver: mysql\n  dsn: x\n"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("/nonexistent/newsdesk.yaml"); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
