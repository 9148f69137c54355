// Package source resolves the data sources that cache refresh functions read from.
//
// A Provider hands out a Scope per use. Singleton providers are opened once
// by the orchestrator and reused for every refresh; scoped providers are
// opened right before a refresh cycle and closed right after it, on every
// exit path.
package source

import (
	"context"
	"fmt"
	"sync"
)

// Lifetime says how long a resolved source may be reused
type Lifetime int

const (
	// LifetimeSingleton sources are resolved once and live as long as the orchestrator
	LifetimeSingleton Lifetime = iota
	// LifetimeScoped sources are resolved for a single refresh cycle
	LifetimeScoped
)

func (l Lifetime) String() string {
	switch l {
	case LifetimeSingleton:
		return "singleton"
	case LifetimeScoped:
		return "scoped"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Scope owns a resolved source until Close is called
type Scope[S any] interface {
	Source() S
	Close() error
}

// Provider opens scopes for a source of type S
type Provider[S any] interface {
	Lifetime() Lifetime
	Open(ctx context.Context) (Scope[S], error)
}

// ResolveFunc resolves a source that needs no cleanup
type ResolveFunc[S any] func(ctx context.Context) (S, error)

// OpenFunc resolves a source together with its release function.
// release may be nil.
type OpenFunc[S any] func(ctx context.Context) (src S, release func() error, err error)

type scope[S any] struct {
	src     S
	release func() error
	once    sync.Once
	err     error
}

// NewScope builds a Scope from a source and an optional release function.
// Close runs release at most once.
func NewScope[S any](src S, release func() error) Scope[S] {
	return &scope[S]{src: src, release: release}
}

func (s *scope[S]) Source() S {
	return s.src
}

func (s *scope[S]) Close() error {
	s.once.Do(func() {
		if s.release != nil {
			s.err = s.release()
		}
	})
	return s.err
}

type provider[S any] struct {
	lifetime Lifetime
	open     OpenFunc[S]
}

func (p *provider[S]) Lifetime() Lifetime {
	return p.lifetime
}

func (p *provider[S]) Open(ctx context.Context) (Scope[S], error) {
	src, release, err := p.open(ctx)
	if err != nil {
		return nil, ErrResolve(p.lifetime, err)
	}
	return NewScope(src, release), nil
}

// Instance wraps an already constructed source as a singleton.
// The orchestrator never closes it.
func Instance[S any](src S) Provider[S] {
	return &provider[S]{
		lifetime: LifetimeSingleton,
		open: func(context.Context) (S, func() error, error) {
			return src, nil, nil
		},
	}
}

// Singleton resolves the source once at orchestrator start
func Singleton[S any](resolve ResolveFunc[S]) Provider[S] {
	return SingletonCloser(func(ctx context.Context) (S, func() error, error) {
		src, err := resolve(ctx)
		return src, nil, err
	})
}

// SingletonCloser resolves the source once at orchestrator start and
// releases it when the orchestrator stops
func SingletonCloser[S any](open OpenFunc[S]) Provider[S] {
	return &provider[S]{lifetime: LifetimeSingleton, open: open}
}

// Scoped resolves a fresh source for every refresh cycle
func Scoped[S any](open OpenFunc[S]) Provider[S] {
	return &provider[S]{lifetime: LifetimeScoped, open: open}
}

// Use opens a scope from p, runs fn with its source and always closes the scope.
// A close error is returned only when fn succeeded.
func Use[S, T any](ctx context.Context, p Provider[S], fn func(ctx context.Context, src S) (T, error)) (out T, err error) {
	sc, err := p.Open(ctx)
	if err != nil {
		return out, err
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil && err == nil {
			err = ErrRelease(cerr)
		}
	}()
	return fn(ctx, sc.Source())
}
