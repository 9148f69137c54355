package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/dailyyoga/cacheorch/logger"
)

func newTestEntry() *entry {
	def := &definition{name: "test", cfg: DefaultConfig()}
	return newEntry(def, logger.NewNop(), 0)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNotLoaded, StatusLoading, true},
		{StatusNotLoaded, StatusReady, false},
		{StatusLoading, StatusReady, true},
		{StatusLoading, StatusStale, true},
		{StatusLoading, StatusFailed, true},
		{StatusLoading, StatusLoading, false},
		{StatusLoading, StatusNotLoaded, false},
		{StatusReady, StatusLoading, true},
		{StatusReady, StatusStale, false},
		{StatusStale, StatusLoading, true},
		{StatusStale, StatusReady, false},
		{StatusFailed, StatusLoading, true},
		{StatusFailed, StatusNotLoaded, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("canTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestEntry_Lifecycle(t *testing.T) {
	e := newTestEntry()
	now := time.Now()

	if e.hasAttempted() {
		t.Fatal("fresh entry must not be attempted")
	}
	if _, ok := e.current(); ok {
		t.Fatal("fresh entry must have no value")
	}

	// NotLoaded -> Loading -> Ready
	if from, ok := e.begin(now); !ok || from != StatusNotLoaded {
		t.Fatalf("begin = (%v, %v), want (not_loaded, true)", from, ok)
	}
	if e.currentStatus() != StatusLoading {
		t.Fatalf("expected loading, got %v", e.currentStatus())
	}
	if _, ok := e.begin(now); ok {
		t.Fatal("begin must fail while loading")
	}
	if !e.succeed(42, now) {
		t.Fatal("succeed must be allowed from loading")
	}
	if !e.hasAttempted() {
		t.Error("expected entry to be attempted after first cycle")
	}
	if v, ok := e.current(); !ok || v != 42 {
		t.Errorf("current = (%v, %v), want (42, true)", v, ok)
	}

	// Ready -> Loading -> Stale keeps the value
	refreshed, _ := e.lastRefreshTime()
	e.begin(now.Add(time.Second))
	boom := errors.New("boom")
	if to, ok := e.fail(boom, FailureModeKeepStale); !ok || to != StatusStale {
		t.Fatalf("fail = (%v, %v), want (stale, true)", to, ok)
	}
	if v, ok := e.current(); !ok || v != 42 {
		t.Errorf("stale entry must keep value, got (%v, %v)", v, ok)
	}
	if last, _ := e.lastRefreshTime(); !last.Equal(refreshed) {
		t.Errorf("failure must not move last refresh time")
	}

	snap := e.snapshot()
	if snap.ConsecutiveFailures != 1 || !errors.Is(snap.LastError, boom) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Settled != StatusStale {
		t.Errorf("settled = %v, want stale", snap.Settled)
	}

	// Stale -> Loading -> Failed drops the value
	e.begin(now.Add(2 * time.Second))
	if snap := e.snapshot(); snap.Status != StatusLoading || snap.Settled != StatusStale {
		t.Errorf("unexpected snapshot while loading: %+v", snap)
	}
	if to, _ := e.fail(boom, FailureModeFail); to != StatusFailed {
		t.Fatalf("fail = %v, want failed", to)
	}
	if _, ok := e.current(); ok {
		t.Error("failed entry must not serve a value")
	}
	if e.snapshot().ConsecutiveFailures != 2 {
		t.Errorf("expected 2 consecutive failures")
	}

	// Failed -> Loading -> Ready resets failures
	e.begin(now.Add(3 * time.Second))
	e.succeed(43, now.Add(3*time.Second))
	snap = e.snapshot()
	if snap.ConsecutiveFailures != 0 || snap.LastError != nil || snap.Status != StatusReady {
		t.Errorf("unexpected snapshot after recovery: %+v", snap)
	}
}

func TestEntry_FirstFailureKeepStaleWithoutValue(t *testing.T) {
	e := newTestEntry()
	e.begin(time.Now())

	to, ok := e.fail(errors.New("down"), FailureModeKeepStale)
	if !ok || to != StatusFailed {
		t.Errorf("fail = (%v, %v), want (failed, true)", to, ok)
	}
	if !e.hasAttempted() {
		t.Error("a failed first cycle still counts as attempted")
	}
}

func TestEntry_SettleWithoutBegin(t *testing.T) {
	e := newTestEntry()

	if e.succeed(1, time.Now()) {
		t.Error("succeed must be rejected from not_loaded")
	}
	if _, ok := e.fail(errors.New("x"), FailureModeFail); ok {
		t.Error("fail must be rejected from not_loaded")
	}
	if e.currentStatus() != StatusNotLoaded {
		t.Errorf("status = %v, want not_loaded", e.currentStatus())
	}
}

func TestEntry_Abandon(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(e *entry)
		from    Status
		want    Status
		ok      bool
	}{
		{"first load", func(e *entry) { e.begin(time.Now()) }, StatusNotLoaded, StatusNotLoaded, true},
		{"after ready", func(e *entry) {
			e.begin(time.Now())
			e.succeed(1, time.Now())
			e.begin(time.Now())
		}, StatusReady, StatusReady, true},
		{"not loading", func(e *entry) {}, StatusReady, StatusNotLoaded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEntry()
			tt.prepare(e)
			if ok := e.abandon(tt.from); ok != tt.ok {
				t.Fatalf("abandon = %v, want %v", ok, tt.ok)
			}
			snap := e.snapshot()
			if snap.Status != tt.want {
				t.Errorf("status = %v, want %v", snap.Status, tt.want)
			}
			if snap.ConsecutiveFailures != 0 || snap.LastError != nil {
				t.Errorf("abandon must not record a failure: %+v", snap)
			}
		})
	}
}

func TestEntry_MarkIssued(t *testing.T) {
	e := newTestEntry()
	calls := 0
	seq := func() int64 {
		calls++
		return int64(calls)
	}

	e.markIssued(seq)
	e.markIssued(seq)
	select {
	case <-e.issued:
	default:
		t.Fatal("issued must be closed")
	}
	if calls != 1 || e.issuedSeq.Load() != 1 {
		t.Errorf("seq drawn %d times, issuedSeq %d", calls, e.issuedSeq.Load())
	}

	// settling without an issued cycle still releases waiters
	other := newTestEntry()
	other.markAttempted()
	select {
	case <-other.issued:
	default:
		t.Error("markAttempted must close issued")
	}
}
