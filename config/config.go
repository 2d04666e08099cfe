package config

import (
	"fmt"
	"time"

	"github.com/skillsenselab/flowkit/logger"
	"github.com/skillsenselab/flowkit/resilience"
	"github.com/skillsenselab/flowkit/stream"
	"github.com/skillsenselab/flowkit/validation"
)

// Config is the orchestrator configuration. Durations are strings parsed
// with time.ParseDuration ("500ms", "30s").
type Config struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`

	Executor ExecutorConfig `yaml:"executor" mapstructure:"executor"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Monitor  MonitorConfig  `yaml:"monitor" mapstructure:"monitor"`
	Kafka    KafkaConfig    `yaml:"kafka" mapstructure:"kafka"`
}

// ExecutorConfig bounds the scheduler worker pool.
type ExecutorConfig struct {
	MaxParallelism int `yaml:"max_parallelism" mapstructure:"max_parallelism" validate:"gte=0"`
}

// RetryConfig is the wire form of the default retry policy.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	BaseDelay   string  `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    string  `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier  float64 `yaml:"multiplier" mapstructure:"multiplier" validate:"gte=0"`
	Jitter      float64 `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// Policy converts the wire form into a retry policy. Unset fields stay
// zero and fall back to resilience defaults.
func (c RetryConfig) Policy() resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   parseDuration(c.BaseDelay),
		MaxDelay:    parseDuration(c.MaxDelay),
		Multiplier:  c.Multiplier,
		Jitter:      c.Jitter,
	}
}

// MonitorConfig holds stream health thresholds.
type MonitorConfig struct {
	MaxLag        int64   `yaml:"max_lag" mapstructure:"max_lag" validate:"gte=0"`
	MaxFreshness  string  `yaml:"max_freshness" mapstructure:"max_freshness"`
	MinThroughput float64 `yaml:"min_throughput" mapstructure:"min_throughput" validate:"gte=0"`
	HistorySize   int     `yaml:"history_size" mapstructure:"history_size" validate:"gte=0"`
}

// Thresholds converts the wire form into monitor thresholds.
func (c MonitorConfig) Thresholds() stream.Thresholds {
	return stream.Thresholds{
		MaxLag:        c.MaxLag,
		MaxFreshness:  parseDuration(c.MaxFreshness),
		MinThroughput: c.MinThroughput,
	}
}

// KafkaConfig locates the monitored broker.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	GroupID string   `yaml:"group_id" mapstructure:"group_id"`
}

// ApplyDefaults fills unset fields with development defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "flowkit"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()

	if c.Retry.BaseDelay == "" {
		c.Retry.BaseDelay = "500ms"
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = "30s"
	}
	if c.Monitor.MaxFreshness == "" {
		c.Monitor.MaxFreshness = "5m"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = c.Name + "-monitor"
	}
}

// Validate checks struct tags and duration strings.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	for field, value := range map[string]string{
		"retry.base_delay":      c.Retry.BaseDelay,
		"retry.max_delay":       c.Retry.MaxDelay,
		"monitor.max_freshness": c.Monitor.MaxFreshness,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", field, value)
		}
	}
	return nil
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
