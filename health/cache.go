package health

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dailyyoga/cacheorch/cache"
)

// StatusSource exposes cache snapshots, implemented by *cache.Orchestrator
type StatusSource interface {
	Statuses() map[string]cache.Snapshot
}

// CacheOption configures a CacheChecker
type CacheOption func(*CacheChecker)

// WithCheckerName overrides the checker name, default "caches"
func WithCheckerName(name string) CacheOption {
	return func(c *CacheChecker) { c.name = name }
}

// WithClock replaces time.Now when comparing against a cache's initial delay
func WithClock(now func() time.Time) CacheOption {
	return func(c *CacheChecker) { c.now = now }
}

// CacheChecker classifies every enabled cache and reports the worst verdict.
// Details maps each cache name to its status; disabled caches are listed as
// "disabled" and never affect the verdict.
type CacheChecker struct {
	src  StatusSource
	name string
	now  func() time.Time
}

// NewCacheChecker creates a checker over src
func NewCacheChecker(src StatusSource, opts ...CacheOption) *CacheChecker {
	c := &CacheChecker{src: src, name: "caches", now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CacheChecker) Name() string {
	return c.name
}

// Check classifies the current snapshots; it never blocks on a refresh
func (c *CacheChecker) Check(_ context.Context) Result {
	snaps := c.src.Statuses()
	now := c.now()

	names := make([]string, 0, len(snaps))
	for name := range snaps {
		names = append(names, name)
	}
	slices.Sort(names)

	verdict := StatusHealthy
	details := make(map[string]any, len(snaps))
	var degraded, unhealthy []string
	enabled := 0
	for _, name := range names {
		s := snaps[name]
		if !s.Enabled {
			details[name] = "disabled"
			continue
		}
		enabled++
		details[name] = s.Status.String()

		st := Classify(s, now)
		verdict = Worst(verdict, st)
		switch st {
		case StatusDegraded:
			degraded = append(degraded, name)
		case StatusUnhealthy:
			unhealthy = append(unhealthy, name)
		}
	}

	var r Result
	switch verdict {
	case StatusUnhealthy:
		r = Unhealthy(fmt.Sprintf("unhealthy caches: %s", strings.Join(unhealthy, ", ")), ErrUnhealthyCaches(unhealthy))
	case StatusDegraded:
		r = Degraded(fmt.Sprintf("stale caches: %s", strings.Join(degraded, ", ")))
	default:
		r = Healthy(fmt.Sprintf("%d caches healthy", enabled))
	}
	return r.WithDetails(details)
}

// Classify maps one enabled cache to a verdict.
//
// Failed is unhealthy, Stale is degraded and Ready is healthy. A cache that
// has not loaded yet is healthy until its EligibleAt passes and unhealthy
// afterwards. While Loading the last settled status is used.
func Classify(s cache.Snapshot, now time.Time) Status {
	st := s.Status
	if st == cache.StatusLoading {
		st = s.Settled
	}
	switch st {
	case cache.StatusReady:
		return StatusHealthy
	case cache.StatusStale:
		return StatusDegraded
	case cache.StatusNotLoaded:
		if s.EligibleAt.IsZero() || !now.Before(s.EligibleAt) {
			return StatusUnhealthy
		}
		return StatusHealthy
	default:
		return StatusUnhealthy
	}
}
