// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expense-tracker/internal/log"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Session backends accepted by SESSION_BACKEND.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	HTTP    HTTPConfig
	DB      DBConfig
	Session SessionConfig
	Redis   RedisConfig
	AMQP    AMQPConfig
	Admin   AdminConfig
	Log     LogConfig
}

// HTTPConfig controls the listener and cookie flags.
type HTTPConfig struct {
	Port         string        `env:"PORT" env-default:"8080"`
	SecureCookie bool          `env:"SECURE_COOKIE" env-default:"false"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// DBConfig locates the SQLite database file.
type DBConfig struct {
	Path string `env:"DB_PATH" env-default:"expenses.db"`
}

// SessionConfig selects the session store and its lifetimes.
type SessionConfig struct {
	Backend         string        `env:"SESSION_BACKEND" env-default:"sqlite"`
	TTL             time.Duration `env:"SESSION_TTL" env-default:"720h"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" env-default:"1h"`
}

// RedisConfig is used when the session backend is redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// AMQPConfig enables event publishing when URL is set.
type AMQPConfig struct {
	URL      string `env:"AMQP_URL" env-default:""`
	Exchange string `env:"AMQP_EXCHANGE" env-default:"expense-tracker"`
}

// AdminConfig seeds a first user when the store has none.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME" env-default:"Admin"`
	Email    string `env:"ADMIN_EMAIL" env-default:""`
	Password string `env:"ADMIN_PASSWORD" env-default:""`
}

// LogConfig sets the slog level and handler format.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads the optional env files, then the environment. Variables already
// set in the environment win over the files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.HTTP.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.HTTP.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DB.Path) == "" {
		errs = append(errs, "database path cannot be empty")
	}

	switch c.Session.Backend {
	case SessionBackendSQLite:
	case SessionBackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, "REDIS_ADDR is required when using the redis session backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid session backend '%s': must be one of [sqlite redis]", c.Session.Backend))
	}

	if c.Session.TTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.Session.TTL))
	}
	if c.Session.CleanupInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid session cleanup interval %v: must be at least 1 second", c.Session.CleanupInterval))
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, "ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.HTTP.Port
}
