package graph

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes graph translation errors.
type ErrorKind uint8

const (
	// ErrUnsupportedWidth indicates an integer or float constant width
	// outside the supported set {8,16,32,64} / {16,32,64}.
	ErrUnsupportedWidth ErrorKind = iota

	// ErrUnsupportedConstant indicates a constant that is neither
	// integer, float, boolean, composite, nor a tensor-typed null.
	ErrUnsupportedConstant

	// ErrMissingBinding indicates a resource reference without
	// descriptor-set/binding decorations.
	ErrMissingBinding

	// ErrShapeMismatch indicates a splat or null constant whose element
	// count cannot be reconciled with its declared shape. This is a
	// logic fault in the module or the pass, not a user error.
	ErrShapeMismatch

	// ErrDynamicShape indicates a tensor whose shape is not a compile
	// time constant. Translation requires concrete dimensions.
	ErrDynamicShape

	// ErrInvalidModule indicates a structurally malformed graph
	// declaration.
	ErrInvalidModule
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedWidth:
		return "UnsupportedWidth"
	case ErrUnsupportedConstant:
		return "UnsupportedConstant"
	case ErrMissingBinding:
		return "MissingBinding"
	case ErrShapeMismatch:
		return "ShapeMismatch"
	case ErrDynamicShape:
		return "DynamicShape"
	case ErrInvalidModule:
		return "InvalidModule"
	default:
		return "Unknown"
	}
}

// Error represents a graph translation error.
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

// errorf creates a translation error with a formatted message.
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
