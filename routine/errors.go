package routine

import "fmt"

// ErrPanicRecovered is matched by every error produced from a recovered panic
var ErrPanicRecovered = fmt.Errorf("routine: panic recovered")

// ErrPanic returns an error wrapping the recovered panic value
func ErrPanic(recovered any) error {
	return fmt.Errorf("%w: %v", ErrPanicRecovered, recovered)
}

// PanicError carries a recovered panic value and the stack where it happened
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return ErrPanic(e.Value).Error()
}

func (e *PanicError) Unwrap() error {
	return ErrPanicRecovered
}
