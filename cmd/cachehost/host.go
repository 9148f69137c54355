package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dailyyoga/cacheorch/cache"
	"github.com/dailyyoga/cacheorch/db"
	"github.com/dailyyoga/cacheorch/health"
	"github.com/dailyyoga/cacheorch/kafka"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/routine"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// host owns the process-wide resources around one orchestrator
type host struct {
	cfg *Config
	log logger.Logger

	database db.Database
	producer kafka.Producer
	pricing  pricing
}

// build creates the orchestrator. With connect set it opens MySQL and the
// Kafka producer; otherwise nothing is dialled and the orchestrator must not
// be started.
func (h *host) build(ctx context.Context, connect bool) (*cache.Orchestrator, error) {
	var opts []cache.Option

	if connect && h.cfg.MySQL != nil {
		d, err := db.NewMySQL(ctx, h.log, h.cfg.MySQL)
		if err != nil {
			return nil, err
		}
		h.database = d
	}
	if connect && h.cfg.Events != nil {
		p, err := kafka.NewProducer(ctx, h.log, &h.cfg.Events.Producer)
		if err != nil {
			return nil, err
		}
		h.producer = p
		n, err := kafka.NewEventNotifier(p, &h.cfg.Events.NotifierConfig)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithNotifier(n))
	}
	b := cache.NewBuilder()
	h.registerCaches(b, h.database)
	if err := h.cfg.Caches.Apply(b); err != nil {
		return nil, err
	}

	o, err := cache.New(h.log, b, opts...)
	if err != nil {
		return nil, err
	}
	if err := h.bindHandles(o); err != nil {
		return nil, err
	}
	return o, nil
}

// close releases what build opened
func (h *host) close() error {
	var errs *multierror.Error
	if h.producer != nil {
		errs = multierror.Append(errs, h.producer.Close())
	}
	if h.database != nil {
		errs = multierror.Append(errs, h.database.Close())
	}
	return errs.ErrorOrNil()
}

func (h *host) aggregator(o *cache.Orchestrator) *health.Aggregator {
	agg := health.NewAggregator(h.cfg.Health.Aggregator)
	caches := health.NewCacheChecker(o)
	agg.Register(caches.Name(), caches)
	if h.database != nil {
		agg.Register("mysql", health.NewCheckerFunc("mysql", func(ctx context.Context) health.Result {
			if err := h.database.Ping(ctx); err != nil {
				return health.Unhealthy("ping failed", err)
			}
			return health.Healthy("reachable")
		}))
	}
	return agg
}

// serve runs the orchestrator and the health endpoint on ln until ctx is done
func serve(ctx context.Context, cfg *Config, log logger.Logger, ln net.Listener) (err error) {
	h := &host{cfg: cfg, log: log}
	defer func() {
		if cerr := h.close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	o, err := h.build(ctx, true)
	if err != nil {
		return err
	}
	if err := o.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, h.aggregator(o))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	runner := routine.New(log)
	runner.GoNamed("health-server", func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server stopped", zap.Error(err))
		}
	})
	log.Info("cache host started",
		zap.String("health_addr", ln.Addr().String()),
		zap.Strings("caches", cacheNames(o)),
	)

	<-ctx.Done()
	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs *multierror.Error
	errs = multierror.Append(errs, srv.Shutdown(shutdownCtx))
	runner.Wait()
	errs = multierror.Append(errs, o.Stop(shutdownCtx))
	return errs.ErrorOrNil()
}

func cacheNames(o *cache.Orchestrator) []string {
	snaps := o.Snapshots()
	names := make([]string, 0, len(snaps))
	for _, s := range snaps {
		names = append(names, s.Name)
	}
	return names
}
