package cache

import (
	"context"
	"reflect"

	"github.com/dailyyoga/cacheorch/source"
	"github.com/hashicorp/go-multierror"
)

// openedScope is a source scope with its source type erased
type openedScope interface {
	value() any
	Close() error
}

type scopeBox[S any] struct {
	source.Scope[S]
}

func (b scopeBox[S]) value() any {
	return b.Source()
}

// definition is the immutable registration of one cache
type definition struct {
	name      string
	order     int
	cfg       *Config
	lifetime  source.Lifetime
	open      func(ctx context.Context) (openedScope, error)
	refresh   func(ctx context.Context, src any) (any, error)
	valueType reflect.Type
}

// Builder accumulates cache registrations at startup.
// It performs no runtime work; New consumes it once.
type Builder struct {
	defs  []*definition
	names map[string]*definition
	errs  *multierror.Error
}

// NewBuilder creates an empty Builder
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]*definition)}
}

// Register adds a cache named name whose value of type T is produced by fn
// from a source resolved through p. A nil cfg uses DefaultConfig.
//
// Registration errors are collected and reported by Err and by New, so
// calls can be chained.
func Register[S, T any](b *Builder, name string, p source.Provider[S], fn RefreshFunc[S, T], cfg *Config) *Builder {
	if name == "" {
		b.errs = multierror.Append(b.errs, ErrInvalidName(name))
		return b
	}
	if _, ok := b.names[name]; ok {
		b.errs = multierror.Append(b.errs, ErrDuplicateName(name))
		return b
	}
	if p == nil {
		b.errs = multierror.Append(b.errs, ErrCacheConfig(name, ErrInvalidConfig(source.ErrNilProvider.Error())))
		return b
	}
	if fn == nil {
		b.errs = multierror.Append(b.errs, ErrCacheConfig(name, ErrInvalidConfig("refresh function is nil")))
		return b
	}

	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.clone().MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		b.errs = multierror.Append(b.errs, ErrCacheConfig(name, err))
	}

	def := &definition{
		name:     name,
		order:    len(b.defs),
		cfg:      cfg,
		lifetime: p.Lifetime(),
		open: func(ctx context.Context) (openedScope, error) {
			sc, err := p.Open(ctx)
			if err != nil {
				return nil, err
			}
			return scopeBox[S]{sc}, nil
		},
		refresh: func(ctx context.Context, src any) (any, error) {
			return fn(ctx, src.(S))
		},
		valueType: reflect.TypeFor[T](),
	}
	b.defs = append(b.defs, def)
	b.names[name] = def
	return b
}

// Err returns every registration error collected so far, or nil
func (b *Builder) Err() error {
	return b.errs.ErrorOrNil()
}

// Names lists registered caches in registration order
func (b *Builder) Names() []string {
	names := make([]string, len(b.defs))
	for i, d := range b.defs {
		names[i] = d.name
	}
	return names
}

// Configure edits the configuration of a registered cache before New.
// The result is merged with defaults and validated again by New.
func (b *Builder) Configure(name string, edit func(cfg *Config)) error {
	def, ok := b.names[name]
	if !ok {
		return ErrUnknownCache(name)
	}
	cfg := def.cfg.clone()
	edit(cfg)
	def.cfg = cfg.MergeDefaults()
	return nil
}

// build validates every registration and returns definitions in start order
func (b *Builder) build() ([]*definition, error) {
	var errs *multierror.Error
	if b.errs != nil {
		errs = multierror.Append(errs, b.errs.Errors...)
	}
	for _, d := range b.defs {
		if err := d.cfg.Validate(); err != nil {
			errs = multierror.Append(errs, ErrCacheConfig(d.name, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, dedupe(err)
	}
	return plan(b.defs)
}

// dedupe drops repeated messages, a config error can be reported by Register and build
func dedupe(err error) error {
	merr, ok := err.(*multierror.Error)
	if !ok {
		return err
	}
	seen := make(map[string]struct{}, len(merr.Errors))
	var out *multierror.Error
	for _, e := range merr.Errors {
		if _, dup := seen[e.Error()]; dup {
			continue
		}
		seen[e.Error()] = struct{}{}
		out = multierror.Append(out, e)
	}
	return out.ErrorOrNil()
}
