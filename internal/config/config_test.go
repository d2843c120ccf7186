package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(content), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
remote:
  base-url: http://127.0.0.1:8045
  management-key: secret-key
  timeout: 10s
database-dsn: gateway.db
jwt:
  secret: jwt-secret
  expiry: 24h
admin:
  port: 9100
  password-hash: $2a$10$abcdefghijklmnopqrstuv
auto-refresh:
  enabled: true
  interval: 5m
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Remote.BaseURL != "http://127.0.0.1:8045" || cfg.Remote.ManagementKey != "secret-key" {
		t.Fatalf("unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Remote.Timeout)
	}
	if cfg.DatabaseDSN != "gateway.db" {
		t.Fatalf("unexpected dsn: %q", cfg.DatabaseDSN)
	}
	if cfg.JWT.Expiry != 24*time.Hour {
		t.Fatalf("unexpected jwt expiry: %v", cfg.JWT.Expiry)
	}
	if cfg.Admin.Port != 9100 {
		t.Fatalf("unexpected admin port: %d", cfg.Admin.Port)
	}
	if !cfg.AutoRefresh.Enabled || cfg.AutoRefresh.Interval != 5*time.Minute {
		t.Fatalf("unexpected auto-refresh config: %+v", cfg.AutoRefresh)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  base-url: http://127.0.0.1:8045
auto-refresh:
  enabled: true
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.JWT.Expiry != defaultJWTExpiry {
		t.Fatalf("expected default jwt expiry, got %v", cfg.JWT.Expiry)
	}
	if cfg.Admin.Port != 8318 {
		t.Fatalf("expected default port, got %d", cfg.Admin.Port)
	}
	if cfg.AutoRefresh.Interval != defaultRefreshInterval {
		t.Fatalf("expected default refresh interval, got %v", cfg.AutoRefresh.Interval)
	}
}

func TestLoadRequiresRemoteURL(t *testing.T) {
	path := writeConfig(t, `database-dsn: gateway.db`)

	if _, errLoad := Load(path); errLoad == nil {
		t.Fatal("expected error for missing remote base-url")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
remote:
  base-url: http://127.0.0.1:8045
database-dsn: file.db
jwt:
  secret: file-secret
`)

	t.Setenv(EnvDBConnection, "host=db dbname=gateway")
	t.Setenv(EnvJWTSecret, "env-secret")
	t.Setenv(EnvJWTExpiry, "2h")
	t.Setenv(EnvRemoteURL, "http://10.0.0.1:8045")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.DatabaseDSN != "host=db dbname=gateway" {
		t.Fatalf("env dsn override not applied: %q", cfg.DatabaseDSN)
	}
	if cfg.JWT.Secret != "env-secret" || cfg.JWT.Expiry != 2*time.Hour {
		t.Fatalf("env jwt override not applied: %+v", cfg.JWT)
	}
	if cfg.Remote.BaseURL != "http://10.0.0.1:8045" {
		t.Fatalf("env remote override not applied: %q", cfg.Remote.BaseURL)
	}
}

func TestResolveConfigPathDefault(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	resolved := ResolveConfigPath("")
	if !filepath.IsAbs(resolved) {
		t.Fatalf("expected absolute path, got %q", resolved)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Fatalf("expected config.yaml default, got %q", resolved)
	}
}
