package ch

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type Config struct {
	// clickhouse connection config
	Hosts       []string      `mapstructure:"hosts" yaml:"hosts"`
	Database    string        `mapstructure:"database" yaml:"database"`
	Username    string        `mapstructure:"username" yaml:"username"`
	Password    string        `mapstructure:"password" yaml:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	Debug       bool          `mapstructure:"debug" yaml:"debug"`
	// MaxOpenConns caps concurrent queries from refreshing caches
	// default: 5
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	// SlowQueryThreshold logs queries slower than this at warn level, 0 disables
	// default: 5 * time.Second
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold" yaml:"slow_query_threshold"`
	// clickhouse settings (https://clickhouse.com/docs/operations/settings/settings)
	Settings clickhouse.Settings `mapstructure:"settings" yaml:"settings"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:           "default",
		DialTimeout:        10 * time.Second,
		MaxOpenConns:       5,
		SlowQueryThreshold: 5 * time.Second,
	}
}

// MergeDefaults fills zero-valued fields from DefaultConfig and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	return c
}

func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrInvalidConfig("hosts are required")
	}
	if c.Username == "" {
		return ErrInvalidConfig("username is required")
	}
	if c.Password == "" {
		return ErrInvalidConfig("password is required")
	}
	if c.MaxOpenConns < 0 {
		return ErrInvalidConfig("max_open_conns cannot be negative")
	}
	if c.SlowQueryThreshold < 0 {
		return ErrInvalidConfig("slow_query_threshold cannot be negative")
	}
	return nil
}

func (c *Config) options() *clickhouse.Options {
	return &clickhouse.Options{
		Addr: c.Hosts,
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		DialTimeout:  c.DialTimeout,
		MaxOpenConns: c.MaxOpenConns,
		Debug:        c.Debug,
		Settings:     c.Settings,
	}
}
