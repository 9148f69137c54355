// Package cache keeps a set of named in-memory caches populated and fresh.
//
// The cache package follows go-kit conventions:
// - Caches are declared on a Builder at startup and validated as a whole
// - An Orchestrator runs one refresh loop per cache, honouring initial
//   delays, dependencies between caches and per-cache retry settings
// - Reads never block on a refresh; typed access goes through Handle
// - Uses logger.Logger for logging and routine for safe goroutines
//
// Each cache moves through NotLoaded, Loading, Ready, Stale and Failed.
// A failed refresh keeps the last good value (Stale) unless the cache is
// configured with FailureModeFail or has never loaded.
package cache

import (
	"context"
	"fmt"
	"time"
)

// RefreshFunc produces a fresh snapshot of a cache's data from its source.
// It must respect ctx cancellation and must not touch cache state.
type RefreshFunc[S, T any] func(ctx context.Context, src S) (T, error)

// Status is the lifecycle state of a single cache
type Status int

const (
	// StatusNotLoaded is the initial state; disabled caches stay here
	StatusNotLoaded Status = iota
	// StatusLoading means a refresh cycle is in flight
	StatusLoading
	// StatusReady means the last cycle succeeded
	StatusReady
	// StatusStale means the last cycle failed and the previous value is served
	StatusStale
	// StatusFailed means the last cycle failed and no value is served
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotLoaded:
		return "not_loaded"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusStale:
		return "stale"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status name, used by JSON health output
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time, read-only view of one cache
type Snapshot struct {
	Name    string
	Enabled bool
	Status  Status
	// Settled is the last status other than Loading; NotLoaded until the first cycle ends
	Settled             Status
	HasValue            bool
	LastRefresh         time.Time
	LastAttempt         time.Time
	LastError           error
	ConsecutiveFailures int
	// EligibleAt is when the first load was scheduled (start plus InitialDelay); zero before start
	EligibleAt   time.Time
	Priority     int
	Dependencies []string
}
