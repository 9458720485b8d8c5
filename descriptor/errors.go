package descriptor

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes descriptor substitution errors.
type ErrorKind uint8

const (
	// ErrMissingTensorInfo indicates a write targeting a tensor binding
	// without the required tensor-view attachment on its chain.
	ErrMissingTensorInfo ErrorKind = iota

	// ErrInvalidTensorView indicates a tensor-view handle that was not
	// created by this layer.
	ErrInvalidTensorView
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrMissingTensorInfo:
		return "MissingTensorInfo"
	case ErrInvalidTensorView:
		return "InvalidTensorView"
	default:
		return "Unknown"
	}
}

// Error represents a descriptor substitution error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// errorf creates a substitution error with a formatted message.
func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or false if err did not
// originate from this package.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
