// Package config defines configuration parsing and helpers for the
// category-stream consumer process.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"

	"github.com/sbditto85/eventide-go/internal/backoff"
	"github.com/sbditto85/eventide-go/internal/consumer"
)

// Config holds all process configuration parsed from environment variables.
type Config struct {
	AppEnv          string   `env:"APP_ENV" envDefault:"dev"`
	AdminHTTPAddr   string   `env:"ADMIN_HTTP_ADDR" envDefault:":8080"`
	MessageDBURL    string   `env:"MESSAGE_DB_URL" envDefault:"postgres://message_store@localhost/message_store" validate:"required"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	RedisURL        string   `env:"REDIS_URL"`
	OTLPEndpoint    string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string   `env:"OTEL_SERVICE_NAME" envDefault:"eventide-consumer"`

	Category               string  `env:"CONSUMER_CATEGORY" validate:"required"`
	PositionUpdateInterval uint64  `env:"POSITION_UPDATE_INTERVAL" envDefault:"100" validate:"gte=1"`
	BatchSize              *uint64 `env:"BATCH_SIZE"`
	Correlation            string  `env:"CORRELATION"`
	ConsumerGroupMember    *uint64 `env:"CONSUMER_GROUP_MEMBER"`
	ConsumerGroupSize      *uint64 `env:"CONSUMER_GROUP_SIZE"`
	Condition              string  `env:"CONDITION"`

	// BackOffKind selects the back-off policy: "constant" or "on_no_message_count".
	BackOffKind     string        `env:"BACK_OFF_KIND" envDefault:"constant" validate:"oneof=constant on_no_message_count"`
	BackOffDuration time.Duration `env:"BACK_OFF_DURATION" envDefault:"100ms" validate:"gte=0"`

	// RunLimit bounds the consumer's remaining wall-clock run budget,
	// consumed across runtimeclock.SystemRunTime.Sleep calls; zero means
	// unbounded (the default for a long-running process).
	RunLimit time.Duration `env:"RUN_LIMIT" envDefault:"0s" validate:"gte=0"`

	// Session connection retry (bounded exponential back-off), mirrored
	// from the teacher's AI-provider backoff knobs but applied to
	// establishing the store connection pool instead.
	SessionBackoffMaxElapsedTime  time.Duration `env:"SESSION_BACKOFF_MAX_ELAPSED_TIME" envDefault:"60s"`
	SessionBackoffInitialInterval time.Duration `env:"SESSION_BACKOFF_INITIAL_INTERVAL" envDefault:"500ms"`
	SessionBackoffMaxInterval     time.Duration `env:"SESSION_BACKOFF_MAX_INTERVAL" envDefault:"10s"`
	SessionBackoffMultiplier      float64       `env:"SESSION_BACKOFF_MULTIPLIER" envDefault:"1.5"`

	// Rate limiting of Getter.Get calls against a shared Redis bucket,
	// for partitioned consumer-group deployments.
	RateLimitEnabled   bool    `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"50" validate:"gte=0"`
	RateLimitBurst     int64   `env:"RATE_LIMIT_BURST" envDefault:"50" validate:"gte=0"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the process is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the process is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the process is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// Validate runs struct-tag validation and the consumer-group pairing
// invariant spec.md requires: member and size are both set or both unset,
// and member < size when both are present.
func (c Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("op=config.Validate: %w", err)
	}

	if (c.ConsumerGroupMember == nil) != (c.ConsumerGroupSize == nil) {
		return fmt.Errorf("op=config.Validate: consumer_group_member and consumer_group_size must both be set or both unset")
	}
	if c.ConsumerGroupMember != nil && c.ConsumerGroupSize != nil {
		if *c.ConsumerGroupSize == 0 {
			return fmt.Errorf("op=config.Validate: consumer_group_size must be greater than zero")
		}
		if *c.ConsumerGroupMember >= *c.ConsumerGroupSize {
			return fmt.Errorf("op=config.Validate: consumer_group_member must be less than consumer_group_size")
		}
	}

	return nil
}

// ToSettings projects the env-sourced fields into the core consumer.Settings
// value. The core itself never parses environment variables; this is the
// seam between process configuration and the domain model.
func (c Config) ToSettings() consumer.Settings {
	return consumer.Settings{
		PositionUpdateInterval: c.PositionUpdateInterval,
		MessageDBURL:           c.MessageDBURL,
		BatchSize:              c.BatchSize,
		Correlation:            c.Correlation,
		ConsumerGroupMember:    c.ConsumerGroupMember,
		ConsumerGroupSize:      c.ConsumerGroupSize,
		Condition:              c.Condition,
	}
}

// BackOff constructs the configured back-off policy.
func (c Config) BackOff() (backoff.BackOff, error) {
	switch c.BackOffKind {
	case "constant":
		return backoff.NewConstant(c.BackOffDuration), nil
	case "on_no_message_count":
		return backoff.NewOnNoMessageCount(c.BackOffDuration), nil
	default:
		return nil, fmt.Errorf("op=config.BackOff: unknown back_off_kind %q", c.BackOffKind)
	}
}
