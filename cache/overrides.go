package cache

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// RetryOverride replaces the retry fields that are set
type RetryOverride struct {
	MaxAttempts *int           `yaml:"max_attempts"`
	Delay       *time.Duration `yaml:"delay"`
	Backoff     *Backoff       `yaml:"backoff"`
	MaxDelay    *time.Duration `yaml:"max_delay"`
}

// Override replaces the fields of a registered cache's Config that are set.
// A nil field keeps the value given at registration.
type Override struct {
	RefreshInterval *time.Duration `yaml:"refresh_interval"`
	Schedule        *string        `yaml:"schedule"`
	InitialDelay    *time.Duration `yaml:"initial_delay"`
	Enabled         *bool          `yaml:"enabled"`
	Priority        *int           `yaml:"priority"`
	Dependencies    []string       `yaml:"dependencies"`
	Retry           *RetryOverride `yaml:"retry"`
	FailureMode     *FailureMode   `yaml:"failure_mode"`
	Timeout         *time.Duration `yaml:"timeout"`
}

// Overrides maps cache names to their overrides, typically read from YAML:
//
//	prices:
//	  refresh_interval: 30s
//	  failure_mode: fail
//	  retry:
//	    max_attempts: 5
type Overrides map[string]Override

// ParseOverrides decodes YAML overrides
func ParseOverrides(data []byte) (Overrides, error) {
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, ErrInvalidConfig(fmt.Sprintf("parse overrides: %v", err))
	}
	return ov, nil
}

// LoadOverrides reads YAML overrides from a file
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cache: read overrides %q: %w", path, err)
	}
	return ParseOverrides(data)
}

// Apply edits the matching registrations on b.
// Names that are not registered are reported together; the others are still applied.
func (ov Overrides) Apply(b *Builder) error {
	names := make([]string, 0, len(ov))
	for name := range ov {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs *multierror.Error
	for _, name := range names {
		o := ov[name]
		if err := b.Configure(name, o.apply); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (o Override) apply(cfg *Config) {
	set(&cfg.RefreshInterval, o.RefreshInterval)
	set(&cfg.Schedule, o.Schedule)
	set(&cfg.InitialDelay, o.InitialDelay)
	set(&cfg.Priority, o.Priority)
	set(&cfg.FailureMode, o.FailureMode)
	set(&cfg.Timeout, o.Timeout)
	if o.Enabled != nil {
		cfg.Enabled = Bool(*o.Enabled)
	}
	if o.Dependencies != nil {
		cfg.Dependencies = slices.Clone(o.Dependencies)
	}
	if r := o.Retry; r != nil {
		set(&cfg.Retry.MaxAttempts, r.MaxAttempts)
		set(&cfg.Retry.Delay, r.Delay)
		set(&cfg.Retry.Backoff, r.Backoff)
		set(&cfg.Retry.MaxDelay, r.MaxDelay)
	}
}

func set[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}
