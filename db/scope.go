package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dailyyoga/cacheorch/source"
	"gorm.io/gorm"
)

// Provider exposes the shared connection pool as a singleton source.
// The pool is owned by the caller and is not closed by the orchestrator.
func Provider(d Database) source.Provider[*gorm.DB] {
	return source.Singleton(func(ctx context.Context) (*gorm.DB, error) {
		gdb, err := d.DB()
		if err != nil {
			return nil, err
		}
		if err := d.Ping(ctx); err != nil {
			return nil, ErrConnection(err)
		}
		return gdb, nil
	})
}

// ReadOnlyScope opens a read-only transaction for every refresh cycle.
// The transaction is rolled back when the cycle ends, whatever its outcome.
// A positive timeout bounds the transaction.
func ReadOnlyScope(d Database, timeout time.Duration) source.Provider[*gorm.DB] {
	return source.Scoped(func(ctx context.Context) (*gorm.DB, func() error, error) {
		gdb, err := d.DB()
		if err != nil {
			return nil, nil, err
		}

		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}

		tx := gdb.WithContext(ctx).Begin(&sql.TxOptions{ReadOnly: true})
		if tx.Error != nil {
			cancel()
			return nil, nil, ErrBeginTx(tx.Error)
		}

		release := func() error {
			defer cancel()
			err := tx.Rollback().Error
			if err != nil && !errors.Is(err, sql.ErrTxDone) {
				return ErrRollback(err)
			}
			return nil
		}
		return tx, release, nil
	})
}
