package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dailyyoga/cacheorch/cache"
	"github.com/dailyyoga/cacheorch/ch"
	"github.com/dailyyoga/cacheorch/db"
	"github.com/dailyyoga/cacheorch/health"
	"github.com/dailyyoga/cacheorch/httpsource"
	"github.com/dailyyoga/cacheorch/kafka"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the host configuration file.
// Every backend section is optional; a cache whose backend is missing
// falls back to built-in sample data.
type Config struct {
	Logger *logger.Config `yaml:"logger"`
	Health HealthConfig   `yaml:"health"`
	// ShutdownTimeout bounds Stop and the health server shutdown
	// default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Caches cache.Overrides `yaml:"caches"`

	MySQL      *db.Config         `yaml:"mysql"`
	ClickHouse *ch.Config         `yaml:"clickhouse"`
	Rates      *httpsource.Config `yaml:"rates"`
	Events     *EventsConfig      `yaml:"events"`
}

type HealthConfig struct {
	// default: ":8080"
	Addr       string                  `yaml:"addr"`
	Aggregator health.AggregatorConfig `yaml:",inline"`
}

// EventsConfig publishes cache transitions to Kafka
type EventsConfig struct {
	Producer             kafka.ProducerConfig `yaml:"producer"`
	kafka.NotifierConfig `yaml:",inline"`
}

func defaultConfig() *Config {
	return &Config{
		Logger:          logger.DefaultConfig(),
		Health:          HealthConfig{Addr: ":8080"},
		ShutdownTimeout: 30 * time.Second,
	}
}

// loadConfig reads path; an empty path yields the defaults
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.DefaultConfig()
	}
	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return cfg, nil
}

// Validate checks every configured section without connecting anywhere
func (c *Config) Validate() error {
	var errs *multierror.Error
	errs = multierror.Append(errs, c.Logger.MergeDefaults().Validate())
	if c.MySQL != nil {
		errs = multierror.Append(errs, c.MySQL.MergeDefaults().Validate())
	}
	if c.ClickHouse != nil {
		errs = multierror.Append(errs, c.ClickHouse.MergeDefaults().Validate())
	}
	if c.Rates != nil {
		errs = multierror.Append(errs, c.Rates.MergeDefaults().Validate())
	}
	if c.Events != nil {
		errs = multierror.Append(errs, c.Events.Producer.MergeDefaults().Validate())
		errs = multierror.Append(errs, c.Events.NotifierConfig.Validate())
	}
	return errs.ErrorOrNil()
}
