// Package errors provides standardized error types for table engine operations.
// This package defines FrameError for consistent error handling across
// all public APIs, with operation context, a machine-readable kind and
// error wrapping support.
package errors

import (
	"fmt"
)

// Kind is the machine-readable tag carried by every FrameError
type Kind string

// Error kinds surfaced by the engine
const (
	KindNotFound       Kind = "not_found"
	KindNotUnique      Kind = "not_unique"
	KindNonMonotonic   Kind = "non_monotonic"
	KindLengthMismatch Kind = "length_mismatch"
	KindDtypeMismatch  Kind = "dtype_mismatch"
	KindKeyAmbiguous   Kind = "key_ambiguous"
	KindOverflow       Kind = "overflow"
	KindCorruptImage   Kind = "corrupt_image"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidInput   Kind = "invalid_input"
)

// FrameError represents standardized errors across all table operations
type FrameError struct {
	Op      string // Operation name (e.g., "GetLoc", "ReindexAxis", "JoinOn")
	Kind    Kind   // Machine-readable tag
	Label   string // Offending label if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s operation failed [%s] on label '%s': %s", e.Op, e.Kind, e.Label, e.Message)
	}
	return fmt.Sprintf("%s operation failed [%s]: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind (the package sentinels) matches every error of that kind.
func (e *FrameError) Is(target error) bool {
	fe, ok := target.(*FrameError)
	if !ok {
		return false
	}
	if fe.Op == "" && fe.Label == "" && fe.Message == "" {
		return e.Kind == fe.Kind
	}
	return e.Op == fe.Op && e.Kind == fe.Kind && e.Label == fe.Label && e.Message == fe.Message
}

// KindOf returns the kind of err, or "" when err is not a FrameError
func KindOf(err error) Kind {
	for err != nil {
		if fe, ok := err.(*FrameError); ok {
			return fe.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Sentinels for errors.Is matching by kind
var (
	ErrNotFound       = &FrameError{Kind: KindNotFound}
	ErrNotUnique      = &FrameError{Kind: KindNotUnique}
	ErrNonMonotonic   = &FrameError{Kind: KindNonMonotonic}
	ErrLengthMismatch = &FrameError{Kind: KindLengthMismatch}
	ErrDtypeMismatch  = &FrameError{Kind: KindDtypeMismatch}
	ErrKeyAmbiguous   = &FrameError{Kind: KindKeyAmbiguous}
	ErrOverflow       = &FrameError{Kind: KindOverflow}
	ErrCorruptImage   = &FrameError{Kind: KindCorruptImage}
	ErrOutOfBounds    = &FrameError{Kind: KindOutOfBounds}
	ErrInvalidInput   = &FrameError{Kind: KindInvalidInput}
)

// Common error constructors for consistent error creation

// NewNotFoundError creates an error for a label absent from an index that required an exact match
func NewNotFoundError(op string, label any) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindNotFound,
		Label:   fmt.Sprint(label),
		Message: "label not found in index",
	}
}

// NewNotUniqueError creates an error for unique-index operations that saw duplicates
func NewNotUniqueError(op, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindNotUnique,
		Message: message,
	}
}

// NewNonMonotonicError creates an error for label slicing over a non-monotone index
func NewNonMonotonicError(op string) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindNonMonotonic,
		Message: "index is not monotonic increasing",
	}
}

// NewLengthMismatchError creates an error for axis/value length disagreement
func NewLengthMismatchError(op, context string, expected, actual int) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindLengthMismatch,
		Message: fmt.Sprintf("%s: expected length %d, got %d", context, expected, actual),
	}
}

// NewDtypeMismatchError creates an error for kernels that received an unsupported dtype
func NewDtypeMismatchError(op string, label any, message string) *FrameError {
	e := &FrameError{
		Op:      op,
		Kind:    KindDtypeMismatch,
		Message: message,
	}
	if label != nil {
		e.Label = fmt.Sprint(label)
	}
	return e
}

// NewKeyAmbiguousError creates an error for keys that resolve to more than one target
func NewKeyAmbiguousError(op string, label any, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindKeyAmbiguous,
		Label:   fmt.Sprint(label),
		Message: message,
	}
}

// NewOverflowError creates an error for composite key spaces that exceed the int64 range
func NewOverflowError(op, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindOverflow,
		Message: message,
	}
}

// NewCorruptImageError creates an error for undecodable persisted images
func NewCorruptImageError(op, message string, cause error) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindCorruptImage,
		Message: message,
		Cause:   cause,
	}
}

// NewOutOfBoundsError creates an error for positional access outside an axis
func NewOutOfBoundsError(op string, position, length int) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindOutOfBounds,
		Message: fmt.Sprintf("position %d out of bounds for axis of length %d", position, length),
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewInternalError wraps an unexpected failure from a collaborator
func NewInternalError(op string, cause error) *FrameError {
	return &FrameError{
		Op:      op,
		Kind:    KindInvalidInput,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
