package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendTable     = "table"
	BackendDirectory = "directory"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects and configures the cache storage adapter
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	Table        string `yaml:"table"`
	Directory    string `yaml:"directory"`
}

// Namespace returns the table name or directory path for the selected backend
func (s StorageConfig) Namespace() string {
	if s.Backend == BackendDirectory {
		return s.Directory
	}
	return s.Table
}

// AuthConfig holds JWT and API client settings
type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	Issuer           string        `yaml:"issuer"`
	Audience         string        `yaml:"audience"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	ClientID         string        `yaml:"client_id"`
	ClientSecretHash string        `yaml:"client_secret_hash"` // bcrypt
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the central configuration struct
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8008",
		},
		Storage: StorageConfig{
			Backend:      BackendTable,
			DatabasePath: "cache.db",
			Table:        "cache_entries",
			Directory:    "cache",
		},
		Auth: AuthConfig{
			JWTSecret: "development-insecure-secret-change-me",
			Issuer:    "cache-store-api",
			Audience:  "cache-store-clients",
			TokenTTL:  24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFile loads configuration from a YAML file on top of the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Load reads path when it is not empty, then applies environment overrides
// and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies CACHE_* environment variable overrides to the config
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("CACHE_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("CACHE_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("CACHE_TABLE"); v != "" {
		cfg.Storage.Table = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Storage.Directory = v
	}
	if v := os.Getenv("CACHE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("CACHE_JWT_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("CACHE_JWT_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := os.Getenv("CACHE_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "config: CACHE_TOKEN_TTL")
		}
		cfg.Auth.TokenTTL = d
	}
	if v := os.Getenv("CACHE_CLIENT_ID"); v != "" {
		cfg.Auth.ClientID = v
	}
	if v := os.Getenv("CACHE_CLIENT_SECRET_HASH"); v != "" {
		cfg.Auth.ClientSecretHash = v
	}
	if v := os.Getenv("CACHE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks that the selected backend is fully configured
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendTable:
		if c.Storage.DatabasePath == "" || c.Storage.Table == "" {
			return errors.New("config: table backend needs storage.database_path and storage.table")
		}
	case BackendDirectory:
		if c.Storage.Directory == "" {
			return errors.New("config: directory backend needs storage.directory")
		}
	default:
		return errors.Newf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: auth.token_ttl must be positive")
	}
	return nil
}
