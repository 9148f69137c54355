package httpsource

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus when the upstream answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("httpsource: unexpected status")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("httpsource: invalid config: %s", msg)
}

// ErrStatus reports the final non-2xx response for url
func ErrStatus(code int, url string) error {
	return fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, code, url)
}

// ErrRequest wraps a transport failure
func ErrRequest(url string, err error) error {
	return fmt.Errorf("httpsource: request %s failed: %w", url, err)
}

// ErrDecode wraps a body that is not valid JSON for the target type
func ErrDecode(url string, err error) error {
	return fmt.Errorf("httpsource: decode response from %s: %w", url, err)
}
