package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-cookieconsent/internal/privacy"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Log     LogConfig     `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Privacy PrivacyConfig `mapstructure:"privacy"`
	Consent ConsentConfig `mapstructure:"consent"`
	Session SessionConfig `mapstructure:"session"`
	Seed    SeedConfig    `mapstructure:"seed"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port string    `mapstructure:"port"`
	TLS  TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig selects and configures the document store.
type DBConfig struct {
	Driver string      `mapstructure:"driver"` // "mysql", "sqlite3", "mongo" or "memory"
	DSN    string      `mapstructure:"dsn"`
	Mongo  MongoConfig `mapstructure:"mongo"`
}

// MongoConfig holds MongoDB connection settings, used when DB.Driver is "mongo".
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig configures the banner configuration cache.
type CacheConfig struct {
	Driver   string        `mapstructure:"driver"` // "memory" or "sqlite"
	FilePath string        `mapstructure:"filePath"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PrivacyConfig holds settings for personal data handling.
type PrivacyConfig struct {
	// IPHashKey keys the IP digest. Leaving it empty produces a plain digest.
	IPHashKey string `mapstructure:"ipHashKey"`
}

// ConsentConfig holds consent banner behaviour settings.
type ConsentConfig struct {
	DefaultLocale string `mapstructure:"defaultLocale"`
	// Endpoint is the path the banner posts consent decisions to.
	Endpoint string `mapstructure:"endpoint"`
	// LibraryURL, when set, is loaded by the snippet before the banner starts.
	// Leave it empty when the host page already loads the consent library.
	LibraryURL string `mapstructure:"libraryURL"`
}

// SessionConfig holds session settings for the admin preview flag.
type SessionConfig struct {
	Lifetime int `mapstructure:"lifetime"` // hours
}

// SeedConfig controls data seeded at startup.
type SeedConfig struct {
	Categories bool `mapstructure:"categories"`
}

// LoadConfig reads configuration from .env, config file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-cookieconsent/")
	v.AddConfigPath("$HOME/.go-cookieconsent")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	v.SetEnvPrefix("COOKIECONSENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "cookieconsent.db")
	v.SetDefault("db.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("db.mongo.database", "cookieconsent")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.filePath", "cookieconsent-cache.db")
	v.SetDefault("cache.ttl", 60*time.Minute)
	v.SetDefault("privacy.ipHashKey", "")
	v.SetDefault("consent.defaultLocale", "en")
	v.SetDefault("consent.endpoint", "/api/consent")
	v.SetDefault("consent.libraryURL", "")
	v.SetDefault("session.lifetime", 12)
	v.SetDefault("seed.categories", true)
}

// Validate rejects driver names the application cannot wire and keys the
// IP hasher would refuse.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "sqlite3", "mongo", "memory":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	switch c.Cache.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if err := privacy.ValidateKey(c.Privacy.IPHashKey); err != nil {
		return fmt.Errorf("invalid privacy.ipHashKey: %w", err)
	}
	return nil
}
