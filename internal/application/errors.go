package application

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed input rejected before any state is read.
var ErrValidation = errors.New("validation failed")

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
