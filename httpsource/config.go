package httpsource

import (
	"net/url"
	"time"
)

type Config struct {
	// BaseURL is joined with the path passed to Fetcher.Get
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Timeout bounds a single HTTP round trip
	// default: 10s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RetryMax is the number of retries after the first request
	// default: 2
	RetryMax int `mapstructure:"retry_max" yaml:"retry_max"`
	// default: 100ms
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min" yaml:"retry_wait_min"`
	// default: 2s
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max" yaml:"retry_wait_max"`
	// Headers are sent with every request
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// MergeDefaults fills zero-valued fields from DefaultConfig and returns c.
// A negative RetryMax disables retries.
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.RetryMax == 0 {
		c.RetryMax = defaults.RetryMax
	}
	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = defaults.RetryWaitMin
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = defaults.RetryWaitMax
	}
	return c
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidConfig("base_url must be an absolute URL")
	}
	if c.Timeout < 0 {
		return ErrInvalidConfig("timeout cannot be negative")
	}
	if c.RetryWaitMin > c.RetryWaitMax {
		return ErrInvalidConfig("retry_wait_min cannot exceed retry_wait_max")
	}
	return nil
}
