package cache

import (
	"fmt"
	"reflect"
	"strings"
)

// Predefined errors
var (
	// ErrInvalidConfiguration is matched by every startup configuration error
	ErrInvalidConfiguration = fmt.Errorf("cache: invalid configuration")
	// ErrCacheNotFound is returned for names that were never registered
	ErrCacheNotFound = fmt.Errorf("cache: cache not found")
	// ErrCacheDisabled is returned when forcing a refresh of a disabled cache
	ErrCacheDisabled = fmt.Errorf("cache: cache is disabled")
	// ErrNotEligible is returned when a cache's dependencies have not attempted their first load
	ErrNotEligible = fmt.Errorf("cache: not yet eligible")
	// ErrNotRunning is returned when the orchestrator is not started or already stopped
	ErrNotRunning = fmt.Errorf("cache: orchestrator is not running")
	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = fmt.Errorf("cache: orchestrator already started")
	// ErrTypeMismatch is returned when a typed accessor does not match the registered type
	ErrTypeMismatch = fmt.Errorf("cache: type mismatch")
)

// Error constructors

// ErrInvalidConfig returns a configuration error with a free-form message
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, msg)
}

// ErrInvalidName returns an error for an empty cache name
func ErrInvalidName(name string) error {
	return fmt.Errorf("%w: invalid name %q (must be non-empty)", ErrInvalidConfiguration, name)
}

// ErrDuplicateName returns an error for a name registered twice
func ErrDuplicateName(name string) error {
	return fmt.Errorf("%w: cache %q registered twice", ErrInvalidConfiguration, name)
}

// ErrCacheConfig scopes a configuration error to one cache
func ErrCacheConfig(name string, err error) error {
	return fmt.Errorf("cache %q: %w", name, err)
}

// ErrUnknownDependency returns an error for a dependency that is not registered
func ErrUnknownDependency(name, dep string) error {
	return fmt.Errorf("%w: cache %q depends on unknown dependency %q", ErrInvalidConfiguration, name, dep)
}

// ErrDisabledDependency returns an error for an enabled cache depending on a disabled one
func ErrDisabledDependency(name, dep string) error {
	return fmt.Errorf("%w: cache %q depends on disabled cache %q", ErrInvalidConfiguration, name, dep)
}

// ErrDependencyCycle returns an error naming the cycle path
func ErrDependencyCycle(path []string) error {
	return fmt.Errorf("%w: circular dependency: %s", ErrInvalidConfiguration, strings.Join(path, " -> "))
}

// ErrRefresh wraps a failed refresh cycle
func ErrRefresh(name string, attempts int, err error) error {
	return fmt.Errorf("cache: refresh %q failed after %d attempt(s): %w", name, attempts, err)
}

// ErrResolveSource wraps a failure to resolve a singleton source at start
func ErrResolveSource(name string, err error) error {
	return fmt.Errorf("cache: resolve source for %q: %w", name, err)
}

// ErrNotEligibleFor names the dependency that has not attempted its first load
func ErrNotEligibleFor(name, dep string) error {
	return fmt.Errorf("%w: cache %q is waiting for %q", ErrNotEligible, name, dep)
}

// ErrUnknownCache wraps ErrCacheNotFound with the requested name
func ErrUnknownCache(name string) error {
	return fmt.Errorf("%w: %q", ErrCacheNotFound, name)
}

// ErrTypeMismatchFor reports a typed access that does not match the registered value type
func ErrTypeMismatchFor(name string, registered, requested reflect.Type) error {
	return fmt.Errorf("%w: cache %q holds %v, requested %v", ErrTypeMismatch, name, registered, requested)
}
