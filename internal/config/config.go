package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	App       AppConfig       `mapstructure:"app"`
	Doses     DosesConfig     `mapstructure:"doses"`
	Media     MediaConfig     `mapstructure:"media"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int   `mapstructure:"port"`
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int64 `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// DSN returns a lib/pq keyword connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns a postgres:// URL as expected by pgx.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	RefreshSecret      string `mapstructure:"refresh_secret"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	PoolSize int    `mapstructure:"pool_size"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	// ClaimTimeout is how long an event may stay in processing before
	// another poll takes it back.
	ClaimTimeout time.Duration `mapstructure:"claim_timeout"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type DosesConfig struct {
	MissedGrace time.Duration `mapstructure:"missed_grace"`
}

type MediaConfig struct {
	Dir           string `mapstructure:"dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MaxBytes      int64  `mapstructure:"max_bytes"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether outgoing email is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type JobsConfig struct {
	MissedDoseSweep string        `mapstructure:"missed_dose_sweep"`
	LowStockDigest  string        `mapstructure:"low_stock_digest"`
	OutboxCleanup   string        `mapstructure:"outbox_cleanup"`
	OutboxRetention time.Duration `mapstructure:"outbox_retention"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// secrets are overlaid from ADHERENCE_* environment variables.
type secrets struct {
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	JWTSecret        string `envconfig:"JWT_SECRET"`
	JWTRefreshSecret string `envconfig:"JWT_REFRESH_SECRET"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	RedisURL         string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.max_body_bytes", 10<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "adherence")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)

	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("jwt.refresh_expiry_hours", 168)

	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 500*time.Millisecond)
	v.SetDefault("outbox.claim_timeout", 5*time.Minute)

	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.origins", []string{"*"})

	v.SetDefault("app.timezone", "America/Sao_Paulo")
	v.SetDefault("doses.missed_grace", time.Hour)

	v.SetDefault("media.dir", "./data/media")
	v.SetDefault("media.public_base_url", "http://localhost:8080/media")
	v.SetDefault("media.max_bytes", 5<<20)

	v.SetDefault("smtp.port", 587)

	v.SetDefault("jobs.missed_dose_sweep", "*/15 * * * *")
	v.SetDefault("jobs.low_stock_digest", "0 8 * * *")
	v.SetDefault("jobs.outbox_cleanup", "0 3 * * *")
	v.SetDefault("jobs.outbox_retention", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path (or . and ./config when empty),
// applies environment overrides and the ADHERENCE_* secrets.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("adherence", &s); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.applySecrets(s)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s secrets) {
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.JWTRefreshSecret != "" {
		c.JWT.RefreshSecret = s.JWTRefreshSecret
	}
	if s.SMTPPassword != "" {
		c.SMTP.Password = s.SMTPPassword
	}
	if s.RedisURL != "" {
		c.Redis.URL = s.RedisURL
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Doses.MissedGrace < 0 {
		return fmt.Errorf("doses.missed_grace must not be negative")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return nil
}
