package source

import "fmt"

var (
	// ErrNilProvider is returned when a registration carries no provider
	ErrNilProvider = fmt.Errorf("source: provider is nil")
)

// ErrResolve wraps a failure to resolve a source
func ErrResolve(l Lifetime, err error) error {
	return fmt.Errorf("source: resolve %s source: %w", l, err)
}

// ErrRelease wraps a failure to release a scope
func ErrRelease(err error) error {
	return fmt.Errorf("source: release scope: %w", err)
}
