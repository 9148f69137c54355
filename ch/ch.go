// Package ch provides a ClickHouse query client used as a cache data source.
//
// The client is resolved once per orchestrator through Connect and shared
// by every cache that reads analytics data from it.
package ch

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client is the read side of a ClickHouse connection
type Client interface {
	// Query executes a ClickHouse query and returns driver.Rows
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	// QueryRow executes a query that is expected to return at most one row
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
	// Select scans every row of the query into dest, a pointer to a slice of structs
	Select(ctx context.Context, dest any, query string, args ...any) error
	// Ping checks the connection
	Ping(ctx context.Context) error
	// Close closes the client and all associated resources
	Close() error
}
