package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvRemoteURL    = "REMOTE_URL"
)

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// defaultRefreshInterval is used when auto-refresh is enabled without an
// explicit interval.
const defaultRefreshInterval = 10 * time.Minute

// RemoteConfig holds the gateway backend connection settings.
type RemoteConfig struct {
	BaseURL       string        `yaml:"base-url"`       // Backend management base URL.
	ManagementKey string        `yaml:"management-key"` // Bearer token for the backend.
	Timeout       time.Duration `yaml:"timeout"`        // Per-request timeout.
}

// JWTConfig holds JWT secret and expiry settings for the admin surface.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// AdminConfig holds the local admin surface settings.
type AdminConfig struct {
	Port         int    `yaml:"port"`          // Listen port.
	PasswordHash string `yaml:"password-hash"` // bcrypt hash of the operator password.
}

// AutoRefreshConfig controls the background quota refresh loop.
type AutoRefreshConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Config is the full application configuration.
type Config struct {
	Remote      RemoteConfig      `yaml:"remote"`
	DatabaseDSN string            `yaml:"database-dsn"`
	JWT         JWTConfig         `yaml:"jwt"`
	Admin       AdminConfig       `yaml:"admin"`
	AutoRefresh AutoRefreshConfig `yaml:"auto-refresh"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads and validates the YAML config file, applying env overrides
// and defaults.
func Load(configPath string) (Config, error) {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", configPath, errRead)
	}

	var cfg Config
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", configPath, errUnmarshal)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Remote.BaseURL) == "" {
		return Config{}, fmt.Errorf("config: missing remote base-url (set `remote.base-url` or env %s)", EnvRemoteURL)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variables over the file values.
func applyEnvOverrides(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if raw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); raw != "" {
		if expiry, errParse := time.ParseDuration(raw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if baseURL := strings.TrimSpace(os.Getenv(EnvRemoteURL)); baseURL != "" {
		cfg.Remote.BaseURL = baseURL
	}
}

// applyDefaults fills unset values.
func applyDefaults(cfg *Config) {
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.Remote.Timeout <= 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 8318
	}
	if cfg.AutoRefresh.Enabled && cfg.AutoRefresh.Interval <= 0 {
		cfg.AutoRefresh.Interval = defaultRefreshInterval
	}
}
