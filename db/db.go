// Package db provides the MySQL data source for cache refreshes.
//
// A Database is opened once per process. Caches that read through
// repositories bound to a session use ReadOnlyScope, which hands every
// refresh cycle its own read-only transaction and rolls it back when the
// cycle ends.
package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is the interface for the database
type Database interface {
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}
