package cache

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cacheorch/cron"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/retry"
	"github.com/dailyyoga/cacheorch/routine"
	"github.com/dailyyoga/cacheorch/source"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

type options struct {
	now            func() time.Time
	notifiers      []Notifier
	notifyTimeout  time.Duration
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	middlewares    []Middleware
}

// Option configures an Orchestrator
type Option func(*options)

// WithClock replaces time.Now for status timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotifier registers notifiers for refresh events
func WithNotifier(n ...Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n...) }
}

// WithNotifyTimeout bounds each Notify call, default 5s
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *options) { o.notifyTimeout = d }
}

// WithMeterProvider sets the meter provider, default otel.GetMeterProvider()
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider, default otel.GetTracerProvider()
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMiddleware appends middlewares run around every refresh attempt,
// inside the built-in recovery, logging and tracing middlewares
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// Orchestrator owns every registered cache and runs their refresh loops.
//
// It is created from a Builder with New, started once with Start and
// stopped with Stop. All read methods are safe for concurrent use and
// never wait for a refresh in progress.
type Orchestrator struct {
	log     logger.Logger
	opts    options
	order   []*entry
	entries map[string]*entry

	guard       singleflight.Group
	launches    atomic.Int64
	middlewares []Middleware
	tracer      trace.Tracer
	metrics     *metrics
	events      *dispatcher

	lifecycle sync.Mutex
	gate      sync.RWMutex
	state     atomic.Int32
	runner    routine.Runner
	forced    sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// New validates the registrations collected by b and builds an orchestrator.
// Configuration errors (duplicate names, unknown dependencies, cycles,
// invalid settings) are returned here, before anything runs.
func New(log logger.Logger, b *Builder, opts ...Option) (*Orchestrator, error) {
	o := options{
		now:           time.Now,
		notifyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	defs, err := b.build()
	if err != nil {
		return nil, err
	}

	orch := &Orchestrator{
		log:     log,
		opts:    o,
		entries: make(map[string]*entry, len(defs)),
		tracer:  o.tracerProvider.Tracer(instrumentationName),
		runner:  routine.New(log),
	}
	for i, d := range defs {
		e := newEntry(d, log, i)
		orch.order = append(orch.order, e)
		orch.entries[d.name] = e
	}

	orch.middlewares = append([]Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
		tracingMiddleware(orch.tracer),
	}, o.middlewares...)

	orch.metrics, err = newMetrics(o.meterProvider.Meter(instrumentationName), orch.Snapshots, o.now)
	if err != nil {
		return nil, err
	}
	return orch, nil
}

// Start resolves singleton sources and launches one refresh loop per enabled cache.
// ctx bounds source resolution only; loops live until Stop.
// If a singleton source cannot be resolved nothing is started and the
// sources resolved so far are released.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	switch o.state.Load() {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrNotRunning
	}

	if err := o.resolveSingletons(ctx); err != nil {
		o.state.Store(stateStopped)
		_ = o.metrics.close()
		return err
	}

	o.ctx, o.cancel = context.WithCancel(context.Background())
	if len(o.opts.notifiers) > 0 {
		o.events = newDispatcher(o.log, o.opts.notifiers, o.opts.notifyTimeout)
	}

	now := o.opts.now()
	enabled := 0
	for _, e := range o.order {
		if !e.def.cfg.IsEnabled() {
			e.log.Info("cache disabled, not scheduling")
			continue
		}
		enabled++
		e.setEligibleAt(now.Add(e.def.cfg.InitialDelay))
		o.runner.GoNamedWithContext(o.ctx, "cache-"+e.def.name, func(ctx context.Context) {
			o.loop(ctx, e)
		})
	}
	o.gate.Lock()
	o.state.Store(stateRunning)
	o.gate.Unlock()

	o.log.Info("cache orchestrator started",
		zap.Int("caches", len(o.order)),
		zap.Int("enabled", enabled),
	)
	return nil
}

// resolveSingletons opens every singleton source concurrently
func (o *Orchestrator) resolveSingletons(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range o.order {
		if !e.def.cfg.IsEnabled() || e.def.lifetime != source.LifetimeSingleton {
			continue
		}
		g.Go(func() error {
			sc, err := e.def.open(gctx)
			if err != nil {
				return ErrResolveSource(e.def.name, err)
			}
			e.shared = sc
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		if cerr := o.releaseSingletons(); cerr != nil {
			o.log.Warn("release singleton sources failed", zap.Error(cerr))
		}
	}
	return err
}

func (o *Orchestrator) releaseSingletons() error {
	var errs *multierror.Error
	for _, e := range o.order {
		if e.shared == nil {
			continue
		}
		if err := e.shared.Close(); err != nil {
			errs = multierror.Append(errs, ErrCacheConfig(e.def.name, err))
		}
		e.shared = nil
	}
	return errs.ErrorOrNil()
}

// Stop cancels every loop and in-flight refresh, waits for them within ctx,
// releases singleton sources and flushes pending events.
// It is idempotent and safe to call when Start failed or never ran.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	o.gate.Lock()
	prev := o.state.Swap(stateStopped)
	o.gate.Unlock()
	if prev != stateRunning {
		if prev == stateCreated {
			return o.metrics.close()
		}
		return nil
	}

	o.log.Info("stopping cache orchestrator")
	o.cancel()

	var errs *multierror.Error
	done := make(chan struct{})
	go func() {
		o.runner.Wait()
		o.forced.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = multierror.Append(errs, ctx.Err())
	}

	if err := o.releaseSingletons(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if o.events != nil {
		if err := o.events.close(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := o.metrics.close(); err != nil {
		errs = multierror.Append(errs, err)
	}

	o.log.Info("cache orchestrator stopped")
	return errs.ErrorOrNil()
}

// loop waits InitialDelay and the dependencies, then refreshes on schedule until ctx ends
func (o *Orchestrator) loop(ctx context.Context, e *entry) {
	cfg := e.def.cfg
	if !sleep(ctx, cfg.InitialDelay) {
		return
	}
	if !o.awaitDependencies(ctx, e) {
		return
	}
	if !o.awaitTurn(ctx, e) {
		return
	}

	schedule := cfg.schedule()
	for {
		o.tick(e)
		if !sleep(ctx, cron.Delay(schedule, o.opts.now())) {
			e.log.Debug("refresh loop stopped")
			return
		}
	}
}

func (o *Orchestrator) awaitDependencies(ctx context.Context, e *entry) bool {
	for _, dep := range e.def.cfg.Dependencies {
		d := o.entries[dep]
		if d.hasAttempted() {
			continue
		}
		e.log.Debug("waiting for dependency", zap.String("dependency", dep))
		select {
		case <-d.attempted:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// awaitTurn holds the first cycle until every higher-ranked cache that is
// eligible at the same time has issued its own first cycle
func (o *Orchestrator) awaitTurn(ctx context.Context, e *entry) bool {
	for _, q := range o.order[:e.rank] {
		if !o.eligibleWith(q, e) {
			continue
		}
		select {
		case <-q.issued:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (o *Orchestrator) eligibleWith(q, e *entry) bool {
	if !q.def.cfg.IsEnabled() || q.def.cfg.InitialDelay > e.def.cfg.InitialDelay {
		return false
	}
	for _, dep := range q.def.cfg.Dependencies {
		if !o.entries[dep].hasAttempted() {
			return false
		}
	}
	return true
}

// tick runs a scheduled cycle unless one is already in flight
func (o *Orchestrator) tick(e *entry) {
	if e.busy.Load() {
		e.log.Debug("refresh in flight, skipping tick")
		return
	}
	_, _, _ = o.guard.Do(e.def.name, func() (any, error) {
		return o.cycle(e), nil
	})
}

// cycle runs one guarded refresh cycle and returns the status it settled in
func (o *Orchestrator) cycle(e *entry) Status {
	e.busy.Store(true)
	defer e.busy.Store(false)

	cfg := e.def.cfg
	start := o.opts.now()
	from, ok := e.begin(start)
	if !ok {
		e.log.Error("illegal status transition", zap.Stringer("from", from), zap.Stringer("to", StatusLoading))
		return from
	}
	e.markIssued(func() int64 {
		seq := o.launches.Add(1)
		e.log.Debug("first refresh issued", zap.Int64("seq", seq))
		return seq
	})

	ctx, span := o.tracer.Start(o.ctx, "cache.refresh",
		trace.WithAttributes(
			attribute.String("cache.name", e.def.name),
			attribute.String("cache.source", e.def.lifetime.String()),
		),
	)
	defer span.End()

	var scoped openedScope
	defer func() {
		if scoped == nil {
			return
		}
		if err := scoped.Close(); err != nil {
			e.log.Warn("release source scope failed", zap.Error(err))
		}
	}()

	var value any
	attempt := 0
	attempts, err := retry.Do(ctx, cfg.Retry.Policy(), func(ctx context.Context) error {
		attempt++
		src, err := o.sourceFor(ctx, e, &scoped)
		if err != nil {
			return err
		}
		run := applyMiddlewares(func(ctx context.Context) (any, error) {
			return e.def.refresh(ctx, src)
		}, o.middlewares...)

		actx, cancel := context.WithTimeout(withAttempt(ctx, e.def.name, attempt), cfg.Timeout)
		defer cancel()
		v, err := run(actx)
		if err != nil {
			// the next attempt opens a fresh scope
			if scoped != nil {
				if cerr := scoped.Close(); cerr != nil {
					e.log.Warn("release source scope failed", zap.Error(cerr))
				}
				scoped = nil
			}
			return err
		}
		value = v
		return nil
	}, func(n int, err error, delay time.Duration) {
		e.log.Warn("refresh failed, will retry",
			zap.Int("attempt", n),
			zap.Int("max_attempts", cfg.Retry.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})

	end := o.opts.now()
	if err != nil && o.ctx.Err() != nil {
		e.abandon(from)
		span.SetStatus(codes.Error, "refresh cancelled")
		e.log.Info("refresh cancelled", zap.Stringer("status", from), zap.Error(err))
		return from
	}

	var to Status
	if err == nil {
		e.succeed(value, end)
		to = StatusReady
	} else {
		err = ErrRefresh(e.def.name, attempts, err)
		to, _ = e.fail(err, cfg.FailureMode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		e.log.Error("refresh cycle failed",
			zap.Stringer("status", to),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}

	if to != from {
		e.log.Info("cache status changed", zap.Stringer("from", from), zap.Stringer("to", to))
	}
	o.metrics.recordCycle(context.WithoutCancel(ctx), e.def.name, to, attempts, end.Sub(start))
	if o.events != nil {
		ev := Event{
			Cache:    e.def.name,
			From:     from,
			To:       to,
			Attempts: attempts,
			Duration: end.Sub(start),
			At:       end,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		o.events.publish(ev)
	}
	return to
}

// sourceFor returns the singleton source or opens the cycle's scope when none is open
func (o *Orchestrator) sourceFor(ctx context.Context, e *entry, scoped *openedScope) (any, error) {
	if e.def.lifetime == source.LifetimeSingleton {
		if e.shared == nil {
			return nil, ErrNotRunning
		}
		return e.shared.value(), nil
	}
	if *scoped == nil {
		sc, err := e.def.open(ctx)
		if err != nil {
			return nil, err
		}
		*scoped = sc
	}
	return (*scoped).value(), nil
}

// ForceRefresh runs a refresh cycle now and reports whether the cache ended Ready.
//
// If a cycle is already in flight the call waits for that cycle instead of
// starting another one. It fails fast with ErrNotEligible while any
// dependency has not completed its first load attempt. ctx only bounds the
// wait; the cycle itself is cancelled by Stop.
func (o *Orchestrator) ForceRefresh(ctx context.Context, name string) (bool, error) {
	e, ok := o.entries[name]
	if !ok {
		return false, ErrUnknownCache(name)
	}
	if !e.def.cfg.IsEnabled() {
		return false, ErrCacheDisabled
	}
	for _, dep := range e.def.cfg.Dependencies {
		if !o.entries[dep].hasAttempted() {
			return false, ErrNotEligibleFor(name, dep)
		}
	}

	o.gate.RLock()
	if o.state.Load() != stateRunning {
		o.gate.RUnlock()
		return false, ErrNotRunning
	}
	o.forced.Add(1)
	o.gate.RUnlock()

	ch := o.guard.DoChan(name, func() (any, error) {
		return o.cycle(e), nil
	})
	result := make(chan Status, 1)
	go func() {
		defer o.forced.Done()
		res := <-ch
		result <- res.Val.(Status)
	}()

	select {
	case st := <-result:
		return st == StatusReady, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Status returns the current status of a cache
func (o *Orchestrator) Status(name string) (Status, error) {
	e, ok := o.entries[name]
	if !ok {
		return StatusNotLoaded, ErrUnknownCache(name)
	}
	return e.currentStatus(), nil
}

// LastRefreshTime returns the time of the last successful refresh, if any
func (o *Orchestrator) LastRefreshTime(name string) (time.Time, bool, error) {
	e, ok := o.entries[name]
	if !ok {
		return time.Time{}, false, ErrUnknownCache(name)
	}
	t, ok := e.lastRefreshTime()
	return t, ok, nil
}

// Statuses returns a snapshot of every registered cache keyed by name
func (o *Orchestrator) Statuses() map[string]Snapshot {
	out := make(map[string]Snapshot, len(o.order))
	for _, e := range o.order {
		out[e.def.name] = e.snapshot()
	}
	return out
}

// Snapshots returns a snapshot of every registered cache in startup order
func (o *Orchestrator) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(o.order))
	for _, e := range o.order {
		out = append(out, e.snapshot())
	}
	return out
}

// GetCurrentValue returns the latest value of a cache as a T.
// The boolean is false while no value is available.
func GetCurrentValue[T any](o *Orchestrator, name string) (T, bool, error) {
	var zero T
	e, err := o.lookup(name, reflect.TypeFor[T]())
	if err != nil {
		return zero, false, err
	}
	v, ok := e.current()
	if !ok {
		return zero, false, nil
	}
	zero, _ = v.(T)
	return zero, true, nil
}

// lookup finds a cache and checks its registered value type
func (o *Orchestrator) lookup(name string, want reflect.Type) (*entry, error) {
	e, ok := o.entries[name]
	if !ok {
		return nil, ErrUnknownCache(name)
	}
	if e.def.valueType != want {
		return nil, ErrTypeMismatchFor(name, e.def.valueType, want)
	}
	return e, nil
}

// sleep waits for d or until ctx ends, reporting whether the full wait elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
