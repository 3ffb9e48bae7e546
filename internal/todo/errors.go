package todo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by mutating operations on an id that does not exist.
	ErrNotFound = errors.New("todo not found")
	// ErrInvalid matches every *ValidationError through errors.Is.
	ErrInvalid = errors.New("invalid input")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
