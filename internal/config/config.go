package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chronobill/chronobill/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Scheduler  SchedulerConfig  `validate:"required"`
	Webhook    WebhookConfig    `validate:"required"`
	Directory  DirectoryConfig
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SchedulerConfig bounds a single scheduler pass
type SchedulerConfig struct {
	// MaxWorkers caps concurrent per-plan goroutines in one pass
	MaxWorkers int `validate:"required,min=1"`
	// BatchSize is the page size for the due-plan query
	BatchSize int `validate:"required,min=1"`
	// RunTimeout bounds a whole RunOnce invocation
	RunTimeout time.Duration
}

// WebhookConfig configures the notification sink
type WebhookConfig struct {
	Enabled bool
	Topic   string `validate:"required"`
	// SinkURL, when set, makes the consumer forward events via HTTP POST.
	// Empty means events are consumed and logged only.
	SinkURL string
	// MaxRetries bounds the fire-and-forget publish retry
	MaxRetries uint64
	// Consumer-side retry policy
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

// DirectoryConfig configures the remote customer directory. An empty
// BaseURL selects the in-process directory backed by postgres.
type DirectoryConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func NewConfig() (*Configuration, error) {
	// Load local .env if present; env vars still take precedence below.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/chronobill")

	v.SetEnvPrefix("CHRONOBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeServer))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "chronobill")
	v.SetDefault("postgres.dbname", "chronobill")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("scheduler.maxworkers", 8)
	v.SetDefault("scheduler.batchsize", 100)
	v.SetDefault("scheduler.runtimeout", "5m")
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.topic", "billing_events")
	v.SetDefault("webhook.maxretries", 3)
	v.SetDefault("webhook.maxattempts", 3)
	v.SetDefault("webhook.initialinterval", "1s")
	v.SetDefault("webhook.maxinterval", "10s")
	v.SetDefault("webhook.multiplier", 2.0)
	v.SetDefault("webhook.maxelapsedtime", "1m")
	v.SetDefault("directory.timeout", "10s")
	v.SetDefault("directory.cachettl", "30m")
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.samplerate", 1.0)
}

func (c Configuration) Validate() error {
	return validator.New().Struct(c)
}
