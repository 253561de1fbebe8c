package weft

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the runtime.
var (
	// ErrRootUnmounted is returned when Update or Unmount is called on a
	// root that has not been mounted.
	ErrRootUnmounted = errors.New("weft: root is not mounted")

	// ErrRootMounted is returned when Mount or Hydrate is called on a root
	// that is already mounted.
	ErrRootMounted = errors.New("weft: root is already mounted")

	// ErrFlushInProgress is returned when a synchronous flush is requested
	// while another flush is already draining the queue.
	ErrFlushInProgress = errors.New("weft: flush already in progress")
)

// ProtocolError reports a construction-time bug: a binding used at the wrong
// part kind, a hook called inconsistently across renders, or a directive-type
// mismatch in a strict slot. Protocol errors are never caught by error
// boundaries; they surface to the caller of the flush with enough context to
// pinpoint the offending site.
type ProtocolError struct {
	// Op names the operation that detected the violation.
	Op string

	// Part is the binding site involved, if any.
	Part *Part

	// Directive is the directive involved, if any.
	Directive Directive

	// Value is the offending value, if any.
	Value any

	// Msg describes the violation.
	Msg string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	s := "weft: protocol violation in " + e.Op + ": " + e.Msg
	if e.Part != nil {
		s += fmt.Sprintf(" (part %s)", e.Part)
	}
	if e.Directive != nil {
		s += fmt.Sprintf(" (directive %s)", e.Directive.Name())
	}
	if e.Value != nil {
		s += fmt.Sprintf(" (value %T)", e.Value)
	}
	return s
}

// protocolErrorf builds a ProtocolError with a formatted message.
func protocolErrorf(op string, part *Part, directive Directive, value any, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Op:        op,
		Part:      part,
		Directive: directive,
		Value:     value,
		Msg:       fmt.Sprintf(format, args...),
	}
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// RenderError wraps an application error raised while rendering a component
// or running one of its effects. It records which component failed so
// boundaries and logs can attribute the failure.
type RenderError struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("weft: render of %s failed: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RenderError) Unwrap() error {
	return e.Err
}
