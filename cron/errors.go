package cron

import "fmt"

var (
	// ErrInvalidSpec is matched by every cron parsing failure
	ErrInvalidSpec = fmt.Errorf("cron: invalid cron spec")

	// ErrEmptySpec is returned for a blank expression
	ErrEmptySpec = fmt.Errorf("cron: empty spec")
)

// ErrSpec wraps a parsing failure for spec
func ErrSpec(spec string, err error) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidSpec, spec, err)
}
