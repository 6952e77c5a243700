package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	Database   DatabaseConfig   `envPrefix:"DB_"`
	JWT        JWTConfig        `envPrefix:"JWT_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	RabbitMQ   RabbitMQConfig   `envPrefix:"RABBITMQ_"`
	Reconciler ReconcilerConfig `envPrefix:"RECONCILER_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Timezone        string        `env:"TIMEZONE" envDefault:"America/Mexico_City"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	Driver   string `env:"DRIVER" envDefault:"postgres"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"attendance"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
	// SeedFile is a JSON fixture loaded at startup. The memory driver falls back to the bundled demo.
	SeedFile string `env:"SEED_FILE"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string `env:"SECRET_KEY"`
	AccessExpiration string `env:"ACCESS_EXPIRATION_TIME" envDefault:"1h"`
}

type RedisConfig struct {
	Addr          string        `env:"ADDR"`
	Password      string        `env:"PASSWORD"`
	DB            int           `env:"DB" envDefault:"0"`
	SubmissionTTL time.Duration `env:"SUBMISSION_TTL" envDefault:"15s"`
}

type RabbitMQConfig struct {
	DSN            string        `env:"DSN"`
	Exchange       string        `env:"EXCHANGE" envDefault:"attendance.events"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
}

type ReconcilerConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `env:"REQUESTS_PER_MINUTE" envDefault:"120"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", c.Database.Driver))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME: %w", err))
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
	}
	if c.Reconciler.Interval <= 0 {
		errs = append(errs, errors.New("RECONCILER_INTERVAL must be positive"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}

// Location is the time zone work dates and shift clocks are evaluated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AccessTokenTTL is the parsed JWT_ACCESS_EXPIRATION_TIME; Validate rejects bad values.
func (c *Config) AccessTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessExpiration)
	return d
}

// LogLevel maps APP_LOG_LEVEL to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
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

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
