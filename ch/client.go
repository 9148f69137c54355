package ch

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dailyyoga/cacheorch/cache"
	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/source"
	"go.uber.org/zap"
)

// defaultClient is the default implementation of the Client interface
type defaultClient struct {
	config *Config
	logger logger.Logger
	conn   driver.Conn

	closed bool
	mu     sync.RWMutex
}

// NewClient connects to ClickHouse and verifies the connection with a ping bounded by ctx
func NewClient(ctx context.Context, config *Config, log logger.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.MergeDefaults()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(config.options())
	if err != nil {
		return nil, ErrConnection(err)
	}

	// test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, ErrConnection(err)
	}

	log.Info("clickhouse client initialized",
		zap.Strings("hosts", config.Hosts),
		zap.String("database", config.Database),
	)
	return newClient(conn, config, log), nil
}

func newClient(conn driver.Conn, config *Config, log logger.Logger) *defaultClient {
	return &defaultClient{config: config, logger: log, conn: conn}
}

// Connect returns a singleton provider that opens the client when the
// orchestrator starts and closes it when the orchestrator stops
func Connect(config *Config, log logger.Logger) source.Provider[Client] {
	return source.SingletonCloser(func(ctx context.Context) (Client, func() error, error) {
		c, err := NewClient(ctx, config, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	})
}

// Query executes a ClickHouse query and returns driver.Rows
func (c *defaultClient) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	start := time.Now()
	rows, err := c.conn.Query(ctx, query, args...)
	c.observe(ctx, query, start, err)
	if err != nil {
		return nil, ErrQuery(err)
	}
	return rows, nil
}

// QueryRow executes a query that is expected to return at most one row
func (c *defaultClient) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		c.logger.Error("connection is closed", zap.String("query", query))
		return nil
	}

	start := time.Now()
	row := c.conn.QueryRow(ctx, query, args...)
	c.observe(ctx, query, start, row.Err())
	return row
}

// Select scans the result set into dest
func (c *defaultClient) Select(ctx context.Context, dest any, query string, args ...any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	start := time.Now()
	err := c.conn.Select(ctx, dest, query, args...)
	c.observe(ctx, query, start, err)
	if err != nil {
		return ErrQuery(err)
	}
	return nil
}

func (c *defaultClient) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}
	return c.conn.Ping(ctx)
}

// observe logs failed and slow queries, tagged with the refreshing cache
func (c *defaultClient) observe(ctx context.Context, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.String("query", query),
		zap.Duration("elapsed", elapsed),
	}
	if name := cache.CacheName(ctx); name != "" {
		fields = append(fields, zap.String("cache", name))
	}

	switch {
	case err != nil:
		c.logger.Error("query failed", append(fields, zap.Error(err))...)
	case c.config.SlowQueryThreshold > 0 && elapsed > c.config.SlowQueryThreshold:
		c.logger.Warn("slow query", append(fields, zap.Duration("threshold", c.config.SlowQueryThreshold))...)
	}
}

// Close closes the client and all associated resources
func (c *defaultClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.conn.Close(); err != nil {
		c.logger.Error("failed to close clickhouse connection", zap.Error(err))
		return err
	}
	c.logger.Info("clickhouse client shutdown complete")
	return nil
}
