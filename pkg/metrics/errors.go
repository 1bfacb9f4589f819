package metrics

import (
	"errors"
	"fmt"
)

// Common errors returned by the registry.
var (
	// ErrDuplicateName is matched by DuplicateNameError via errors.Is.
	ErrDuplicateName = errors.New("duplicate counter name")

	// ErrUnknownCounter is matched by UnknownCounterError via errors.Is.
	ErrUnknownCounter = errors.New("unknown counter")
)

// DuplicateNameError is returned by Register when the name is already taken.
type DuplicateNameError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("counter %q already registered", e.Name)
}

// Is reports whether target is ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// UnknownCounterError is returned by Increment for a name that was never
// registered. It always points at a bug in the caller.
type UnknownCounterError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownCounterError) Error() string {
	return fmt.Sprintf("counter %q not registered", e.Name)
}

// Is reports whether target is ErrUnknownCounter.
func (e *UnknownCounterError) Is(target error) bool {
	return target == ErrUnknownCounter
}
