package vars

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName is returned when a variable name is not an identifier
	ErrInvalidName = errors.New("invalid variable name")

	// ErrKindMismatch is returned when a value cannot be stored under the requested kind
	ErrKindMismatch = errors.New("value does not match storage kind")
)

// SerializationError reports a value that could not be encoded in its kind.
type SerializationError struct {
	Name string
	Kind Kind
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s as %s: %v", e.Name, e.Kind, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// CleanupWarning reports a temporary file that could not be removed.
type CleanupWarning struct {
	Path string
	Err  error
}

func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("remove temp file %s: %v", w.Path, w.Err)
}

func (w *CleanupWarning) Unwrap() error { return w.Err }

// UnknownKindError is returned when parsing an unsupported kind tag.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown storage kind %q", e.Kind)
}
