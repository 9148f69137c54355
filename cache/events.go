package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

// Event describes one settled refresh cycle
type Event struct {
	Cache    string        `json:"cache"`
	From     Status        `json:"from"`
	To       Status        `json:"to"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// Notifier receives refresh events.
// Notify runs on a dedicated goroutine and never delays a refresh.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// dispatcher fans events out to notifiers through an unbounded queue
type dispatcher struct {
	log       logger.Logger
	notifiers []Notifier
	timeout   time.Duration
	queue     *chanx.UnboundedChan[Event]
	done      chan struct{}

	mu     sync.Mutex
	closed bool
}

func newDispatcher(log logger.Logger, notifiers []Notifier, timeout time.Duration) *dispatcher {
	d := &dispatcher{
		log:       log,
		notifiers: notifiers,
		timeout:   timeout,
		queue:     chanx.NewUnboundedChan[Event](context.Background(), 64),
		done:      make(chan struct{}),
	}
	routine.GoNamed(log, "cache-events", d.run)
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue.Out {
		for _, n := range d.notifiers {
			d.deliver(n, ev)
		}
	}
}

func (d *dispatcher) deliver(n Notifier, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	err := routine.Call(func() error { return n.Notify(ctx, ev) })
	if err != nil {
		d.log.Warn("event notification failed",
			zap.String("cache", ev.Cache),
			zap.Stringer("to", ev.To),
			zap.Error(err),
		)
	}
}

// publish enqueues ev; it never blocks and drops events after close
func (d *dispatcher) publish(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue.In <- ev
}

// close stops accepting events and waits until queued ones are delivered or ctx ends
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue.In)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
