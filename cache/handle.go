package cache

import (
	"context"
	"reflect"
	"time"
)

// Handle is typed access to one cache.
// Its type is checked once by NewHandle, so Get never fails on type.
type Handle[T any] struct {
	o    *Orchestrator
	e    *entry
	name string
}

// NewHandle returns a Handle for the cache registered under name with value type T
func NewHandle[T any](o *Orchestrator, name string) (*Handle[T], error) {
	e, err := o.lookup(name, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Handle[T]{o: o, e: e, name: name}, nil
}

// Name returns the cache name
func (h *Handle[T]) Name() string {
	return h.name
}

// Get returns the latest value. ok is false while no value is available.
func (h *Handle[T]) Get() (value T, ok bool) {
	v, ok := h.e.current()
	if !ok {
		return value, false
	}
	// a nil interface value is stored untyped
	value, _ = v.(T)
	return value, true
}

// LastRefreshTime returns when the cache last loaded successfully
func (h *Handle[T]) LastRefreshTime() (time.Time, bool) {
	return h.e.lastRefreshTime()
}

// IsReady reports whether the last refresh succeeded
func (h *Handle[T]) IsReady() bool {
	return h.e.currentStatus() == StatusReady
}

func (h *Handle[T]) Status() Status {
	return h.e.currentStatus()
}

// ForceRefresh forwards to Orchestrator.ForceRefresh
func (h *Handle[T]) ForceRefresh(ctx context.Context) (bool, error) {
	return h.o.ForceRefresh(ctx, h.name)
}
