package docplace

import (
	"errors"
	"fmt"
)

// Sentinel errors for common placement and export failure conditions.
var (
	ErrNoCoordinates = errors.New("docplace: no pointer coordinates available")
	ErrGestureActive = errors.New("docplace: a drag gesture is already in progress")
	ErrNoGesture     = errors.New("docplace: no drag gesture in progress")
	ErrOutOfRange    = errors.New("docplace: index out of range")
	ErrUnknownField  = errors.New("docplace: unknown catalog field")
	ErrStaleResult   = errors.New("docplace: result is stale, placements changed while it was computed")
	ErrInvalidParam  = errors.New("docplace: invalid parameter")
	ErrFetch         = errors.New("docplace: fetching source document failed")
	ErrNoPages       = errors.New("docplace: document has no pages")
)

// OpError represents an error that occurred during a specific operation.
// It wraps an underlying error and includes the operation name for context.
type OpError struct {
	Op  string // operation name, e.g. "Drop", "Export"
	Err error  // underlying error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docplace.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("docplace.%s: unknown error", e.Op)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError creates a new OpError wrapping the given error with operation context.
func NewOpError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}
