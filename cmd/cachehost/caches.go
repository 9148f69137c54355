package main

import (
	"context"
	"errors"
	"time"

	"github.com/dailyyoga/cacheorch/cache"
	"github.com/dailyyoga/cacheorch/ch"
	"github.com/dailyyoga/cacheorch/db"
	"github.com/dailyyoga/cacheorch/httpsource"
	"github.com/dailyyoga/cacheorch/source"
	"gorm.io/gorm"
)

const (
	cacheCatalog = "catalog"
	cacheRates   = "fx_rates"
	cachePrices  = "prices"
	cacheRevenue = "daily_revenue"
)

// pricing reads the values of the caches prices is derived from
type pricing struct {
	catalog *cache.Handle[[]product]
	rates   *cache.Handle[rates]
}

// registerCaches registers the host's caches on b.
// Providers resolve nothing until the orchestrator starts.
func (h *host) registerCaches(b *cache.Builder, database db.Database) {
	if h.cfg.MySQL != nil {
		cache.Register(b, cacheCatalog, db.ReadOnlyScope(database, h.cfg.MySQL.ScopeTimeout), loadCatalog, &cache.Config{
			RefreshInterval: 10 * time.Minute,
			Priority:        10,
		})
	} else {
		cache.Register(b, cacheCatalog, source.Instance(sampleCatalog), func(_ context.Context, c []product) ([]product, error) {
			return c, nil
		}, &cache.Config{RefreshInterval: time.Hour, Priority: 10})
	}

	if h.cfg.Rates != nil {
		cache.Register(b, cacheRates, httpsource.Provider(h.cfg.Rates, h.log), func(ctx context.Context, f *httpsource.Fetcher) (rates, error) {
			fx, err := httpsource.GetJSON[rates](ctx, f, "latest")
			return fx.normalize(), err
		}, &cache.Config{
			RefreshInterval: 5 * time.Minute,
			Priority:        20,
			Retry:           cache.RetryConfig{MaxAttempts: 4, Backoff: cache.BackoffExponential, MaxDelay: 30 * time.Second},
		})
	} else {
		cache.Register(b, cacheRates, source.Instance(sampleRates), func(_ context.Context, fx rates) (rates, error) {
			return fx.normalize(), nil
		}, &cache.Config{RefreshInterval: time.Hour, Priority: 20})
	}

	cache.Register(b, cachePrices, source.Instance(&h.pricing), loadPrices, &cache.Config{
		RefreshInterval: 5 * time.Minute,
		Dependencies:    []string{cacheCatalog, cacheRates},
		FailureMode:     cache.FailureModeKeepStale,
	})

	if h.cfg.ClickHouse != nil {
		cache.Register(b, cacheRevenue, ch.Connect(h.cfg.ClickHouse, h.log), loadRevenue, &cache.Config{
			Schedule: "5 * * * *",
			Priority: 200,
			Timeout:  2 * time.Minute,
		})
	}
}

// bindHandles resolves the typed handles used by derived caches
func (h *host) bindHandles(o *cache.Orchestrator) error {
	var err error
	if h.pricing.catalog, err = cache.NewHandle[[]product](o, cacheCatalog); err != nil {
		return err
	}
	h.pricing.rates, err = cache.NewHandle[rates](o, cacheRates)
	return err
}

func loadCatalog(ctx context.Context, tx *gorm.DB) ([]product, error) {
	var rows []product
	err := tx.WithContext(ctx).
		Table("products").
		Select("sku", "name", "price", "currency").
		Where("active = ?", true).
		Order("sku").
		Find(&rows).Error
	return rows, err
}

func loadPrices(_ context.Context, p *pricing) (priceTable, error) {
	catalog, ok := p.catalog.Get()
	if !ok {
		return nil, errors.New("catalog is not loaded")
	}
	fx, ok := p.rates.Get()
	if !ok {
		return nil, errors.New("exchange rates are not loaded")
	}
	return buildPrices(catalog, fx)
}

func loadRevenue(ctx context.Context, c ch.Client) ([]revenue, error) {
	var rows []revenue
	err := c.Select(ctx, &rows, `
		SELECT toDate(created_at) AS day, count() AS orders, sum(amount) AS revenue
		FROM orders
		WHERE created_at >= today() - 30
		GROUP BY day
		ORDER BY day`)
	return rows, err
}
