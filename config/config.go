package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Storage backend names
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PredictorConfig holds the remote classifier configuration.
// Timeout and RateLimit are disabled at zero.
type PredictorConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type        string `mapstructure:"type"` // "memory", "file" or "postgres"
	Path        string `mapstructure:"path"`
	UploadDir   string `mapstructure:"upload_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// AuthConfig holds credential settings
type AuthConfig struct {
	PasswordHashCost int `mapstructure:"password_hash_cost"`
}

// CatalogConfig points at an external plant library; empty uses the bundled one
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/herbalscanner/")

	// HERBALSCANNER_PREDICTOR_BASE_URL -> predictor.base_url
	v.SetEnvPrefix("HERBALSCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8081", "exp://*"})

	v.SetDefault("predictor.base_url", "https://medicinal-plant-scanner.onrender.com")
	v.SetDefault("predictor.timeout", "0s")
	v.SetDefault("predictor.rate_limit", 0)
	v.SetDefault("predictor.burst", 1)

	v.SetDefault("storage.type", StorageFile)
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.upload_dir", "./data/uploads")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.max_conns", 4)

	v.SetDefault("auth.password_hash_cost", bcrypt.DefaultCost)

	v.SetDefault("catalog.path", "")

	v.SetDefault("ratelimit.per_ip", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// validate validates the configuration
func validate(config *Config) error {
	u, err := url.Parse(config.Predictor.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("predictor base URL must be an absolute http(s) URL, got: %q", config.Predictor.BaseURL)
	}

	if config.Predictor.Timeout < 0 {
		return fmt.Errorf("predictor timeout must not be negative")
	}

	switch config.Storage.Type {
	case StorageMemory:
	case StorageFile:
		if config.Storage.Path == "" {
			return fmt.Errorf("storage path is required when storage type is 'file'")
		}
	case StoragePostgres:
		if config.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required when storage type is 'postgres' (set HERBALSCANNER_STORAGE_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("storage type must be 'memory', 'file' or 'postgres', got: %s", config.Storage.Type)
	}

	if config.Storage.UploadDir == "" {
		return fmt.Errorf("storage upload dir is required")
	}

	if config.Auth.PasswordHashCost < bcrypt.MinCost || config.Auth.PasswordHashCost > bcrypt.MaxCost {
		return fmt.Errorf("password hash cost must be between %d and %d, got: %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Auth.PasswordHashCost)
	}

	return nil
}
