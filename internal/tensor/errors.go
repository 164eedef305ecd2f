package tensor

import (
	stderrors "errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// ShapeError reports extents that cannot be reconciled by broadcasting, or a destination
// whose shape does not match the expression it is bound to.
type ShapeError struct {
	Op     string  // Operator or function that detected the mismatch.
	Dim    int     // Offending (aligned) dimension, -1 when the mismatch is about rank or size.
	A, B   int     // The two conflicting extents (ranks or sizes when Dim == -1).
	Shapes []Shape // Shapes involved, for diagnostics.
}

func (e *ShapeError) Error() string {
	if e.Dim < 0 {
		return fmt.Sprintf("%s: incompatible shapes: %d vs %d (shapes %v)", e.Op, e.A, e.B, e.Shapes)
	}
	return fmt.Sprintf("%s: shape mismatch at dimension %d: %d vs %d (shapes %v)", e.Op, e.Dim, e.A, e.B, e.Shapes)
}

// RangeError reports an index or slice that falls outside a dimension's extent.
type RangeError struct {
	Op     string
	Dim    int
	Begin  int
	Extent int
	Limit  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: range [%d, %d) out of bounds for dimension %d of extent %d",
		e.Op, e.Begin, e.Begin+e.Extent, e.Dim, e.Limit)
}

// ArgumentError reports a malformed argument: a bad permutation, axis map, generator parameter...
type ArgumentError struct {
	Op  string
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Op + ": " + e.Msg
}

// AllocationError reports that a storage backend could not satisfy a request.
type AllocationError struct {
	Backend string
	Bytes   int
	Err     error
}

func (e *AllocationError) Error() string {
	//nolint:gosec // G115: Bytes is validated as non-negative before allocating.
	msg := fmt.Sprintf("%s: failed to allocate %s", e.Backend, humanize.IBytes(uint64(e.Bytes)))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocationError) Unwrap() error { return e.Err }

// SynchronizationError reports that waiting on a queue or event failed, either because a
// queued work item failed or because the wait itself could not complete.
type SynchronizationError struct {
	Queue string
	Work  string
	Err   error
}

func (e *SynchronizationError) Error() string {
	if e.Work == "" {
		return fmt.Sprintf("queue %s: synchronization failed: %v", e.Queue, e.Err)
	}
	return fmt.Sprintf("queue %s: %s failed: %v", e.Queue, e.Work, e.Err)
}

func (e *SynchronizationError) Unwrap() error { return e.Err }

// shapeErrorf returns a ShapeError with a stack trace attached.
func shapeErrorf(op string, dim, a, b int, shapes ...Shape) error {
	return errors.WithStack(&ShapeError{Op: op, Dim: dim, A: a, B: b, Shapes: shapes})
}

// NewShapeError is shapeErrorf for other packages.
func NewShapeError(op string, dim, a, b int, shapes ...Shape) error {
	return shapeErrorf(op, dim, a, b, shapes...)
}

// NewRangeError builds a RangeError with a stack trace attached.
func NewRangeError(op string, dim, begin, extent, limit int) error {
	return errors.WithStack(&RangeError{Op: op, Dim: dim, Begin: begin, Extent: extent, Limit: limit})
}

// ArgumentErrorf builds an ArgumentError with a formatted message and a stack trace.
func ArgumentErrorf(op, format string, args ...any) error {
	return errors.WithStack(&ArgumentError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// IsShapeError reports whether err (or anything it wraps) is a ShapeError.
func IsShapeError(err error) bool {
	var target *ShapeError
	return stderrors.As(err, &target)
}

// IsRangeError reports whether err (or anything it wraps) is a RangeError.
func IsRangeError(err error) bool {
	var target *RangeError
	return stderrors.As(err, &target)
}

// IsArgumentError reports whether err (or anything it wraps) is an ArgumentError.
func IsArgumentError(err error) bool {
	var target *ArgumentError
	return stderrors.As(err, &target)
}

// IsAllocationError reports whether err (or anything it wraps) is an AllocationError.
func IsAllocationError(err error) bool {
	var target *AllocationError
	return stderrors.As(err, &target)
}

// IsSynchronizationError reports whether err (or anything it wraps) is a SynchronizationError.
func IsSynchronizationError(err error) bool {
	var target *SynchronizationError
	return stderrors.As(err, &target)
}
