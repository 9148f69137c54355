package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/dailyyoga/cacheorch/cache"

// metrics records refresh cycles and observes per-cache state
type metrics struct {
	cycles   metric.Int64Counter
	attempts metric.Int64Counter
	duration metric.Float64Histogram
	status   metric.Int64ObservableGauge
	age      metric.Float64ObservableGauge
	reg      metric.Registration
}

func newMetrics(meter metric.Meter, snapshots func() []Snapshot, now func() time.Time) (*metrics, error) {
	cycles, err := meter.Int64Counter(
		"cache.refresh.cycles",
		metric.WithDescription("Refresh cycles by outcome"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter(
		"cache.refresh.attempts",
		metric.WithDescription("Refresh attempts including retries"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"cache.refresh.duration_ms",
		metric.WithDescription("Refresh cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	status, err := meter.Int64ObservableGauge(
		"cache.status",
		metric.WithDescription("Current cache status: 0 not_loaded, 1 loading, 2 ready, 3 stale, 4 failed"),
	)
	if err != nil {
		return nil, err
	}

	age, err := meter.Float64ObservableGauge(
		"cache.age_seconds",
		metric.WithDescription("Seconds since the last successful refresh"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m := &metrics{
		cycles:   cycles,
		attempts: attempts,
		duration: duration,
		status:   status,
		age:      age,
	}

	m.reg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		t := now()
		for _, s := range snapshots() {
			if !s.Enabled {
				continue
			}
			opt := metric.WithAttributes(attribute.String("cache.name", s.Name))
			o.ObserveInt64(m.status, int64(s.Status), opt)
			if !s.LastRefresh.IsZero() {
				o.ObserveFloat64(m.age, t.Sub(s.LastRefresh).Seconds(), opt)
			}
		}
		return nil
	}, status, age)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// recordCycle records one settled cycle
func (m *metrics) recordCycle(ctx context.Context, name string, outcome Status, attempts int, d time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("cache.name", name),
		attribute.String("cache.outcome", outcome.String()),
	)
	m.cycles.Add(ctx, 1, opt)
	m.attempts.Add(ctx, int64(attempts), opt)
	m.duration.Record(ctx, float64(d.Milliseconds()), opt)
}

func (m *metrics) close() error {
	if m.reg == nil {
		return nil
	}
	return m.reg.Unregister()
}
