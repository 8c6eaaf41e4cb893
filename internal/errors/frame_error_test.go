package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/blockframe/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestFrameError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.FrameError
		expected string
	}{
		{
			name: "Error with label",
			err: &errors.FrameError{
				Op:      "GetLoc",
				Kind:    errors.KindNotFound,
				Label:   "x",
				Message: "label not found in index",
			},
			expected: "GetLoc operation failed [not_found] on label 'x': label not found in index",
		},
		{
			name: "Error without label",
			err: &errors.FrameError{
				Op:      "SliceLocs",
				Kind:    errors.KindNonMonotonic,
				Message: "index is not monotonic increasing",
			},
			expected: "SliceLocs operation failed [non_monotonic]: index is not monotonic increasing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestFrameError_Unwrap(t *testing.T) {
	cause := stderrors.New("short read")
	err := errors.NewCorruptImageError("Decode", "truncated image", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, stderrors.Is(err, cause))
}

func TestFrameError_IsByKind(t *testing.T) {
	err := errors.NewNotFoundError("GetLoc", "missing")

	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.False(t, stderrors.Is(err, errors.ErrNotUnique))

	wrapped := fmt.Errorf("reindex: %w", err)
	assert.True(t, stderrors.Is(wrapped, errors.ErrNotFound))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(wrapped))
	assert.Equal(t, errors.Kind(""), errors.KindOf(stderrors.New("plain")))
}

func TestFrameError_IsExact(t *testing.T) {
	err1 := errors.NewNotFoundError("GetLoc", "a")
	err2 := errors.NewNotFoundError("GetLoc", "a")
	err3 := errors.NewNotFoundError("GetLoc", "b")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *errors.FrameError
		kind    errors.Kind
		message string
	}{
		{"length mismatch", errors.NewLengthMismatchError("Set", "column b", 3, 2), errors.KindLengthMismatch, "column b: expected length 3, got 2"},
		{"not unique", errors.NewNotUniqueError("GetIndexer", "index has duplicates"), errors.KindNotUnique, "index has duplicates"},
		{"non monotonic", errors.NewNonMonotonicError("SliceLocs"), errors.KindNonMonotonic, "index is not monotonic increasing"},
		{"overflow", errors.NewOverflowError("GroupIndex", "too many groups"), errors.KindOverflow, "too many groups"},
		{"out of bounds", errors.NewOutOfBoundsError("Take", 7, 3), errors.KindOutOfBounds, "position 7 out of bounds for axis of length 3"},
		{"key ambiguous", errors.NewKeyAmbiguousError("GroupBy", "k", "key names a column and a level"), errors.KindKeyAmbiguous, "key names a column and a level"},
		{"invalid input", errors.NewInvalidInputError("JoinOn", "key lists differ"), errors.KindInvalidInput, "key lists differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.message, tt.err.Message)
		})
	}
}

func TestNewDtypeMismatchError(t *testing.T) {
	err := errors.NewDtypeMismatchError("Sum", "name", "object column is not numeric")
	assert.Equal(t, "name", err.Label)

	noLabel := errors.NewDtypeMismatchError("Arith", nil, "bad operands")
	assert.Empty(t, noLabel.Label)
}
