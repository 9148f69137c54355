package source

import (
	"context"
	"io"

	"github.com/grindlemire/graft"
	"github.com/hashicorp/go-multierror"
)

// GraftSingleton resolves S from the graft node registry once.
// Cacheable nodes are shared through graft's default cache.
func GraftSingleton[S any](opts ...graft.Option) Provider[S] {
	return Singleton(func(ctx context.Context) (S, error) {
		src, _, err := graft.ExecuteFor[S](ctx, opts...)
		return src, err
	})
}

// GraftScoped resolves S from the graft node registry on every refresh cycle.
//
// Nodes marked Cacheable behave as container singletons and are read from
// shared; every other node is built for the cycle. When the scope closes,
// each per-cycle node output implementing io.Closer is closed. A nil shared
// cache uses graft.DefaultCache().
func GraftScoped[S any](shared graft.Cache, opts ...graft.Option) Provider[S] {
	if shared == nil {
		shared = graft.DefaultCache()
	}
	all := append([]graft.Option{graft.WithCache(shared)}, opts...)

	return Scoped(func(ctx context.Context) (S, func() error, error) {
		src, results, err := graft.ExecuteFor[S](ctx, all...)
		if err != nil {
			return src, nil, err
		}

		cached := shared.Snapshot()
		var closers []io.Closer
		for id, v := range results {
			if _, ok := cached[id]; ok {
				continue
			}
			if c, ok := v.(io.Closer); ok {
				closers = append(closers, c)
			}
		}

		return src, func() error {
			var errs *multierror.Error
			for _, c := range closers {
				if err := c.Close(); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
			return errs.ErrorOrNil()
		}, nil
	})
}
