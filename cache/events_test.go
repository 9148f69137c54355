package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/source"
)

func TestOrchestrator_Notifier(t *testing.T) {
	events := make(chan Event, 16)
	var calls atomic.Int32
	b := NewBuilder()
	Register(b, "prices", source.Instance(noSource{}), pricesFunc(&calls), &Config{
		RefreshInterval: hour,
		InitialDelay:    hour,
		Retry:           RetryConfig{MaxAttempts: 1},
	})
	o := start(t, logger.NewNop(), b, WithNotifier(NotifierFunc(func(_ context.Context, ev Event) error {
		events <- ev
		return nil
	})))

	for range 2 {
		if _, err := o.ForceRefresh(context.Background(), "prices"); err != nil {
			t.Fatalf("ForceRefresh: %v", err)
		}
	}

	want := []struct {
		from, to Status
		failed   bool
	}{
		{StatusNotLoaded, StatusReady, false},
		{StatusReady, StatusStale, true},
	}
	for i, w := range want {
		select {
		case ev := <-events:
			if ev.Cache != "prices" || ev.From != w.from || ev.To != w.to {
				t.Errorf("event %d = %+v, want %v -> %v", i, ev, w.from, w.to)
			}
			if ev.Attempts != 1 {
				t.Errorf("event %d attempts = %d, want 1", i, ev.Attempts)
			}
			if (ev.Error != "") != w.failed {
				t.Errorf("event %d error = %q", i, ev.Error)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestDispatcher_FailingNotifierDoesNotStopOthers(t *testing.T) {
	log, logs := newObservedLogger()
	var delivered atomic.Int32

	d := newDispatcher(log, []Notifier{
		NotifierFunc(func(context.Context, Event) error { return errors.New("broker down") }),
		NotifierFunc(func(context.Context, Event) error { panic("bad notifier") }),
		NotifierFunc(func(context.Context, Event) error {
			delivered.Add(1)
			return nil
		}),
	}, time.Second)

	for range 3 {
		d.publish(Event{Cache: "a", To: StatusReady})
	}
	if err := d.close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if n := delivered.Load(); n != 3 {
		t.Errorf("delivered %d events, want 3", n)
	}
	if n := logs.FilterMessage("event notification failed").Len(); n != 6 {
		t.Errorf("expected 6 failure logs, got %d", n)
	}

	// publish after close is dropped and close stays idempotent
	d.publish(Event{Cache: "a"})
	if err := d.close(context.Background()); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestDispatcher_NotifyTimeout(t *testing.T) {
	var sawDeadline atomic.Bool
	d := newDispatcher(logger.NewNop(), []Notifier{
		NotifierFunc(func(ctx context.Context, _ Event) error {
			<-ctx.Done()
			sawDeadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		}),
	}, 5*time.Millisecond)

	d.publish(Event{Cache: "a"})
	if err := d.close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !sawDeadline.Load() {
		t.Error("expected notify context to carry the timeout")
	}
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	d := newDispatcher(logger.NewNop(), []Notifier{
		NotifierFunc(func(context.Context, Event) error {
			<-release
			return nil
		}),
	}, time.Minute)
	defer close(release)

	d.publish(Event{Cache: "a"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
