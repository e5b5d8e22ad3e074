package core

import (
	"errors"
	"fmt"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrTableExists    = errors.New("table already exists")
	ErrInvalidPattern = errors.New("invalid regex pattern")
)

// TableNotFound wraps ErrTableNotFound with the table name.
func TableNotFound(name string) error {
	return fmt.Errorf("table %q: %w", name, ErrTableNotFound)
}

// PatternError reports a $regex operand that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid regex pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

func (e *PatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}
