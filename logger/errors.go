package logger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every configuration error New returns
var ErrInvalidConfig = errors.New("logger: invalid config")

func errUnknownLevel(level string) error {
	return fmt.Errorf("%w: level %q, want one of %s", ErrInvalidConfig, level, strings.Join(validLevels, ", "))
}

func errUnknownEncoding(encoding string) error {
	return fmt.Errorf("%w: encoding %q, want one of %s", ErrInvalidConfig, encoding, strings.Join(validEncodings, ", "))
}

func errBlankPath(field string, i int) error {
	return fmt.Errorf("%w: %s[%d] is blank", ErrInvalidConfig, field, i)
}

// errBuild wraps a zap build failure, typically an output path that cannot be opened
func errBuild(err error) error {
	return fmt.Errorf("logger: build zap logger: %w", err)
}
