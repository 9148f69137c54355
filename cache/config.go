package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/dailyyoga/cacheorch/cron"
	"github.com/dailyyoga/cacheorch/retry"
)

// DefaultPriority is used when Config.Priority is zero
const DefaultPriority = 100

// FailureMode decides what a cache serves after a refresh cycle exhausts its retries
type FailureMode int

const (
	// FailureModeKeepStale keeps serving the last good value and marks the cache Stale
	FailureModeKeepStale FailureMode = iota
	// FailureModeFail drops the value and marks the cache Failed
	FailureModeFail
)

func (m FailureMode) String() string {
	switch m {
	case FailureModeKeepStale:
		return "keep_stale"
	case FailureModeFail:
		return "fail"
	default:
		return fmt.Sprintf("failure_mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler
func (m FailureMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "keep_stale" or "fail" in any case
func (m *FailureMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "keep_stale", "keepstale":
		*m = FailureModeKeepStale
	case "fail":
		*m = FailureModeFail
	default:
		return ErrInvalidConfig(fmt.Sprintf("unknown failure_mode %q", string(text)))
	}
	return nil
}

// terminal maps a failed cycle to the status the cache settles in
func (m FailureMode) terminal(hasValue bool) Status {
	if m == FailureModeKeepStale && hasValue {
		return StatusStale
	}
	return StatusFailed
}

// Backoff names the shape of the delay between attempts
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// RetryConfig bounds a single refresh cycle
type RetryConfig struct {
	// MaxAttempts is the number of tries per cycle, including the first
	// default: 3
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// Delay is the wait between attempts; the first wait for exponential backoff
	// default: 1s
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`
	// Backoff is "fixed" or "exponential"
	// default: "fixed"
	Backoff Backoff `mapstructure:"backoff" yaml:"backoff"`
	// MaxDelay caps exponential backoff, 0 means uncapped
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// Policy builds the retry policy described by the config
func (r RetryConfig) Policy() retry.Policy {
	if r.Backoff == BackoffExponential {
		return retry.Exponential{
			MaxAttempts:  r.MaxAttempts,
			InitialDelay: r.Delay,
			MaxDelay:     r.MaxDelay,
			Jitter:       true,
		}
	}
	return retry.Fixed{MaxAttempts: r.MaxAttempts, Delay: r.Delay}
}

// Config holds per-cache scheduling and failure settings
type Config struct {
	// RefreshInterval is the wait between the end of one cycle and the start of the next
	// default: 15 * time.Minute
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	// Schedule is an optional cron expression; when set it replaces RefreshInterval
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	// InitialDelay is the wait before the first load
	// default: 0
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	// Enabled, nil means enabled
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`
	// Priority orders startup among caches whose dependencies are satisfied; lower first
	// default: 100
	Priority int `mapstructure:"priority" yaml:"priority"`
	// Dependencies must complete their first load attempt before this cache's first load
	Dependencies []string `mapstructure:"dependencies" yaml:"dependencies"`
	// Retry bounds each refresh cycle
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
	// FailureMode applies when a cycle exhausts its retries
	// default: keep_stale
	FailureMode FailureMode `mapstructure:"failure_mode" yaml:"failure_mode"`
	// Timeout bounds each attempt
	// default: 30 * time.Second
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the configuration used for zero-valued fields
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: 15 * time.Minute,
		Priority:        DefaultPriority,
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Second,
			Backoff:     BackoffFixed,
		},
		FailureMode: FailureModeKeepStale,
		Timeout:     30 * time.Second,
	}
}

// Bool returns a pointer to b, for Config.Enabled
func Bool(b bool) *bool {
	return &b
}

// IsEnabled reports whether the cache is scheduled
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// MergeDefaults fills zero-valued fields from DefaultConfig and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.RefreshInterval == 0 {
		c.RefreshInterval = defaults.RefreshInterval
	}
	if c.Priority == 0 {
		c.Priority = defaults.Priority
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if c.Retry.Delay == 0 {
		c.Retry.Delay = defaults.Retry.Delay
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = defaults.Retry.Backoff
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}

// Validate checks field ranges; it expects MergeDefaults to have run
func (c *Config) Validate() error {
	if c.RefreshInterval < 0 {
		return ErrInvalidConfig(fmt.Sprintf("refresh_interval %v must be > 0", c.RefreshInterval))
	}
	if c.InitialDelay < 0 {
		return ErrInvalidConfig(fmt.Sprintf("initial_delay %v must be >= 0", c.InitialDelay))
	}
	if c.Timeout < 0 {
		return ErrInvalidConfig(fmt.Sprintf("timeout %v must be > 0", c.Timeout))
	}
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidConfig(fmt.Sprintf("retry.max_attempts %d must be >= 1", c.Retry.MaxAttempts))
	}
	if c.Retry.Delay < 0 || c.Retry.MaxDelay < 0 {
		return ErrInvalidConfig("retry delays must be >= 0")
	}
	if c.Retry.Backoff != BackoffFixed && c.Retry.Backoff != BackoffExponential {
		return ErrInvalidConfig(fmt.Sprintf("retry.backoff %q must be fixed or exponential", c.Retry.Backoff))
	}
	if c.FailureMode != FailureModeKeepStale && c.FailureMode != FailureModeFail {
		return ErrInvalidConfig(fmt.Sprintf("unknown failure_mode %d", int(c.FailureMode)))
	}
	if c.Schedule != "" {
		if _, err := cron.Parse(c.Schedule); err != nil {
			return ErrInvalidConfig(err.Error())
		}
	}
	seen := make(map[string]struct{}, len(c.Dependencies))
	for _, dep := range c.Dependencies {
		if dep == "" {
			return ErrInvalidConfig("dependency name must be non-empty")
		}
		if _, ok := seen[dep]; ok {
			return ErrInvalidConfig(fmt.Sprintf("dependency %q listed twice", dep))
		}
		seen[dep] = struct{}{}
	}
	return nil
}

// schedule returns the cadence between cycles
func (c *Config) schedule() cron.Schedule {
	if c.Schedule != "" {
		if s, err := cron.Parse(c.Schedule); err == nil {
			return s
		}
	}
	return cron.Every(c.RefreshInterval)
}

// clone copies c so later edits by the caller do not leak into a registration
func (c *Config) clone() *Config {
	out := *c
	out.Dependencies = append([]string(nil), c.Dependencies...)
	if c.Enabled != nil {
		out.Enabled = Bool(*c.Enabled)
	}
	return &out
}
