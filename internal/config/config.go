// Package config loads storefront settings from defaults, an optional
// config.yaml, environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/database"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Token store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// DefaultBackendURL is the hosted EventHub API.
const DefaultBackendURL = "https://event-hub-backend-1ppp.vercel.app/api"

// Config holds all configuration values.
type Config struct {
	AppPort           string        `mapstructure:"APP_PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	BackendURL        string        `mapstructure:"BACKEND_URL"`
	AuthScheme        string        `mapstructure:"AUTH_SCHEME"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRequestsPerMin int           `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Where the auth token is persisted.
	TokenStore string `mapstructure:"TOKEN_STORE"`
	TokenFile  string `mapstructure:"TOKEN_FILE"`
	TokenKey   string `mapstructure:"TOKEN_KEY"`

	// Where the public event list is cached.
	EventsCache    string        `mapstructure:"EVENTS_CACHE"`
	EventsCacheTTL time.Duration `mapstructure:"EVENTS_CACHE_TTL"`

	Redis    database.RedisConfig `mapstructure:",squash"`
	Database database.Config      `mapstructure:",squash"`
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// NeedsRedis reports whether any component is configured to use Redis.
func (c *Config) NeedsRedis() bool {
	return c.TokenStore == StoreRedis || c.EventsCache == StoreRedis
}

// flag name -> config key
var flagKeys = map[string]string{
	"port":        "APP_PORT",
	"env":         "ENV",
	"log-level":   "LOG_LEVEL",
	"backend-url": "BACKEND_URL",
	"token-store": "TOKEN_STORE",
	"token-file":  "TOKEN_FILE",
	"cache":       "EVENTS_CACHE",
}

// Load reads the configuration. args are the command-line arguments without
// the program name; pflag.ErrHelp is returned for --help.
func Load(args []string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	flags := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	flags.String("port", "", "HTTP listen port")
	flags.String("env", "", "environment: development or production")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("backend-url", "", "EventHub API base URL")
	flags.String("token-store", "", "token store: memory, file, redis or postgres")
	flags.String("token-file", "", "token file for the file store")
	flags.String("cache", "", "event cache: memory or redis")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BACKEND_URL", DefaultBackendURL)
	v.SetDefault("AUTH_SCHEME", "Areeb")
	v.SetDefault("REQUEST_TIMEOUT", "0s")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 0)
	v.SetDefault("TOKEN_STORE", StoreFile)
	v.SetDefault("TOKEN_FILE", defaultTokenFile())
	v.SetDefault("TOKEN_KEY", "token")
	v.SetDefault("EVENTS_CACHE", StoreMemory)
	v.SetDefault("EVENTS_CACHE_TTL", "0s")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "eventhub")
	v.SetDefault("DB_SSLMODE", "disable")
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".eventhub", "token")
	}
	return filepath.Join(home, ".eventhub", "token")
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.BackendURL) == "" {
		problems = append(problems, "BACKEND_URL is required")
	}
	if strings.TrimSpace(c.AuthScheme) == "" {
		problems = append(problems, "AUTH_SCHEME is required")
	}
	switch c.TokenStore {
	case StoreMemory, StoreFile, StoreRedis, StorePostgres:
	default:
		problems = append(problems, fmt.Sprintf("TOKEN_STORE %q is not one of memory, file, redis, postgres", c.TokenStore))
	}
	switch c.EventsCache {
	case StoreMemory, StoreRedis:
	default:
		problems = append(problems, fmt.Sprintf("EVENTS_CACHE %q is not one of memory, redis", c.EventsCache))
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "REQUEST_TIMEOUT cannot be negative")
	}
	if c.MaxRequestsPerMin < 0 {
		problems = append(problems, "MAX_REQUESTS_PER_MIN cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
