package erp

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the store adapter. Callers branch with errors.Is
// and never inspect message text.
var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
	ErrAccess     = errors.New("access denied")
)

// NotFoundError reports that an identifier resolved to no record.
func NotFoundError(model string, id uint) error {
	return fmt.Errorf("%w: %s #%d", ErrNotFound, model, id)
}

// ValidationError wraps a constraint violation with its human message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// AccessError reports that the caller lacks permission on a record.
func AccessError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAccess, fmt.Sprintf(format, args...))
}
