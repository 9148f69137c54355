package health

import (
	"fmt"
	"strings"
)

// Predefined errors
var (
	// ErrCheckTimeout is returned when a check does not finish within the aggregator timeout
	ErrCheckTimeout = fmt.Errorf("health: check timeout")
	// ErrCheckerNotFound is returned for an unregistered checker name
	ErrCheckerNotFound = fmt.Errorf("health: checker not found")
	// ErrCachesUnhealthy is matched by the error of an unhealthy cache check
	ErrCachesUnhealthy = fmt.Errorf("health: caches unhealthy")
)

// ErrUnhealthyCaches names the caches that made a check unhealthy
func ErrUnhealthyCaches(names []string) error {
	return fmt.Errorf("%w: %s", ErrCachesUnhealthy, strings.Join(names, ", "))
}
