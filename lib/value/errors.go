package value

import (
	"errors"
	"fmt"
)

// TypeMismatchError reports an accessor called against the wrong
// variant, carrying the expected and actual tags. When the mismatch is
// between two Foreign payload types, WantType and GotType name the
// descriptors involved.
type TypeMismatchError struct {
	Want     Tag
	Got      Tag
	WantType string
	GotType  string
}

func (e *TypeMismatchError) Error() string {
	if e.WantType != "" || e.GotType != "" {
		return fmt.Sprintf("type mismatch: want %s(%s), got %s(%s)",
			e.Want, e.WantType, e.Got, e.GotType)
	}
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}

var (
	// ErrNotCloneable is returned by Clone on an owning payload whose
	// descriptor has no clone function.
	ErrNotCloneable = errors.New("payload is not cloneable")

	// ErrUnsupported is returned when serialization is requested for a
	// variant that cannot be serialized, typically a Foreign value with
	// no registered hook.
	ErrUnsupported = errors.New("serialization not supported")
)

func mismatch(want, got Tag) error {
	return &TypeMismatchError{Want: want, Got: got}
}

func notCloneable(name string) error {
	return fmt.Errorf("%s: %w", name, ErrNotCloneable)
}

func unsupported(name string) error {
	return fmt.Errorf("%s: %w", name, ErrUnsupported)
}
