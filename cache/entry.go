package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cacheorch/logger"
	"go.uber.org/zap"
)

// transitions lists the legal moves of the per-cache state machine
var transitions = map[Status][]Status{
	StatusNotLoaded: {StatusLoading},
	StatusLoading:   {StatusReady, StatusStale, StatusFailed},
	StatusReady:     {StatusLoading},
	StatusStale:     {StatusLoading},
	StatusFailed:    {StatusLoading},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// entry is the runtime state of one cache.
// Fields under mu are written only by the cycle holding the refresh guard.
type entry struct {
	def  *definition
	log  logger.Logger
	rank int

	mu          sync.RWMutex
	status      Status
	settled     Status
	value       any
	hasValue    bool
	lastRefresh time.Time
	lastAttempt time.Time
	lastErr     error
	failures    int
	eligibleAt  time.Time

	// attempted is closed once the first cycle has settled
	attempted   chan struct{}
	attemptOnce sync.Once

	// issued is closed when the first cycle begins, issuedSeq is its launch number
	issued    chan struct{}
	issueOnce sync.Once
	issuedSeq atomic.Int64

	// busy is set while a cycle runs so timer ticks can skip
	busy atomic.Bool

	// shared holds the singleton source scope, nil for scoped sources
	shared openedScope
}

func newEntry(def *definition, log logger.Logger, rank int) *entry {
	return &entry{
		def:       def,
		log:       logger.With(log, zap.String("cache", def.name)),
		rank:      rank,
		status:    StatusNotLoaded,
		settled:   StatusNotLoaded,
		attempted: make(chan struct{}),
		issued:    make(chan struct{}),
	}
}

func (e *entry) setEligibleAt(t time.Time) {
	e.mu.Lock()
	e.eligibleAt = t
	e.mu.Unlock()
}

// begin enters Loading and returns the status it left
func (e *entry) begin(now time.Time) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.status
	if !canTransition(from, StatusLoading) {
		return from, false
	}
	e.status = StatusLoading
	e.lastAttempt = now
	return from, true
}

// succeed stores a fresh value and settles in Ready
func (e *entry) succeed(value any, now time.Time) bool {
	e.mu.Lock()
	if !canTransition(e.status, StatusReady) {
		e.mu.Unlock()
		return false
	}
	e.status = StatusReady
	e.settled = StatusReady
	e.value = value
	e.hasValue = true
	e.lastRefresh = now
	e.lastErr = nil
	e.failures = 0
	e.mu.Unlock()

	e.markAttempted()
	return true
}

// fail records a failed cycle and settles per the failure mode
func (e *entry) fail(err error, mode FailureMode) (Status, bool) {
	e.mu.Lock()
	to := mode.terminal(e.hasValue)
	if !canTransition(e.status, to) {
		e.mu.Unlock()
		return e.status, false
	}
	e.status = to
	e.settled = to
	e.lastErr = err
	e.failures++
	if to == StatusFailed {
		e.value = nil
		e.hasValue = false
	}
	e.mu.Unlock()

	e.markAttempted()
	return to, true
}

// abandon returns a cancelled cycle to the status it left without recording a failure
func (e *entry) abandon(from Status) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusLoading {
		return false
	}
	e.status = from
	return true
}

// markIssued records the first cycle launch, later calls are no-ops
func (e *entry) markIssued(seq func() int64) {
	e.issueOnce.Do(func() {
		e.issuedSeq.Store(seq())
		close(e.issued)
	})
}

func (e *entry) markAttempted() {
	e.issueOnce.Do(func() { close(e.issued) })
	e.attemptOnce.Do(func() { close(e.attempted) })
}

func (e *entry) hasAttempted() bool {
	select {
	case <-e.attempted:
		return true
	default:
		return false
	}
}

func (e *entry) current() (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value, e.hasValue
}

func (e *entry) currentStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *entry) lastRefreshTime() (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRefresh, !e.lastRefresh.IsZero()
}

func (e *entry) snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Name:                e.def.name,
		Enabled:             e.def.cfg.IsEnabled(),
		Status:              e.status,
		Settled:             e.settled,
		HasValue:            e.hasValue,
		LastRefresh:         e.lastRefresh,
		LastAttempt:         e.lastAttempt,
		LastError:           e.lastErr,
		ConsecutiveFailures: e.failures,
		EligibleAt:          e.eligibleAt,
		Priority:            e.def.cfg.Priority,
		Dependencies:        append([]string(nil), e.def.cfg.Dependencies...),
	}
}
