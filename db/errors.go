package db

import "fmt"

var (
	// ErrConnectionNotEstablished database connection not established
	ErrConnectionNotEstablished = fmt.Errorf("db: database connection not established")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("db: invalid config: %s", msg)
}

// ErrConnection database connection error
func ErrConnection(err error) error {
	return fmt.Errorf("db: connection failed: %w", err)
}

// ErrBeginTx wraps a failure to open a scope transaction
func ErrBeginTx(err error) error {
	return fmt.Errorf("db: begin read-only transaction: %w", err)
}

// ErrRollback wraps a failure to release a scope transaction
func ErrRollback(err error) error {
	return fmt.Errorf("db: rollback read-only transaction: %w", err)
}
