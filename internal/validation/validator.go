// Package validation provides input validation utilities for manager operations.
// This package implements a small validation framework with reusable
// validators for common scenarios like column existence, length
// consistency, dtype checking, uniqueness and bounds validation.
package validation

import (
	"fmt"

	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(l label.Label) bool
	Len() int
	Width() int
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	mgr     ColumnProvider
	columns []label.Label
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(mgr ColumnProvider, op string, columns ...label.Label) *ColumnValidator {
	return &ColumnValidator{
		mgr:     mgr,
		columns: columns,
		op:      op,
	}
}

// Validate checks if all columns exist in the manager
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.mgr.HasColumn(column) {
			return errors.NewNotFoundError(v.op, label.Format(column))
		}
	}
	return nil
}

// LengthValidator validates length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		context:  context,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		return errors.NewLengthMismatchError(v.op, v.context, v.expected, v.actual)
	}
	return nil
}

// DtypeValidator validates that a dtype is among the supported ones
type DtypeValidator struct {
	dt        dtype.Dtype
	supported []dtype.Dtype
	column    label.Label
	op        string
}

// NewDtypeValidator creates a validator for dtype checking
func NewDtypeValidator(dt dtype.Dtype, column label.Label, op string, supported ...dtype.Dtype) *DtypeValidator {
	return &DtypeValidator{
		dt:        dt,
		supported: supported,
		column:    column,
		op:        op,
	}
}

// Validate checks if the dtype is supported
func (v *DtypeValidator) Validate() error {
	for _, s := range v.supported {
		if v.dt == s {
			return nil
		}
	}
	return errors.NewDtypeMismatchError(v.op, v.column, fmt.Sprintf("unsupported dtype %s", v.dt))
}

// IndexValidator validates position bounds
type IndexValidator struct {
	index int
	max   int
	op    string
}

// NewIndexValidator creates a validator for positional operations
func NewIndexValidator(index, maxIndex int, op string) *IndexValidator {
	return &IndexValidator{
		index: index,
		max:   maxIndex,
		op:    op,
	}
}

// Validate checks if index is within bounds
func (v *IndexValidator) Validate() error {
	if v.index < 0 || v.index >= v.max {
		return errors.NewOutOfBoundsError(v.op, v.index, v.max)
	}
	return nil
}

// UniqueValidator validates that a label sequence has no duplicates
type UniqueValidator struct {
	labels  []label.Label
	op      string
	context string
}

// NewUniqueValidator creates a validator for label uniqueness
func NewUniqueValidator(labels []label.Label, op, context string) *UniqueValidator {
	return &UniqueValidator{
		labels:  labels,
		op:      op,
		context: context,
	}
}

// Validate checks that no label repeats
func (v *UniqueValidator) Validate() error {
	seen := label.NewTable(len(v.labels))
	for _, l := range v.labels {
		if _, inserted := seen.PutIfAbsent(l, 0); !inserted {
			return errors.NewNotUniqueError(v.op,
				fmt.Sprintf("%s: duplicate label %s", v.context, label.Format(l)))
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(mgr ColumnProvider, op string, columns ...label.Label) error {
	return NewColumnValidator(mgr, op, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateDtype is a convenience function for dtype validation
func ValidateDtype(dt dtype.Dtype, column label.Label, op string, supported ...dtype.Dtype) error {
	return NewDtypeValidator(dt, column, op, supported...).Validate()
}

// ValidateIndex is a convenience function for bounds validation
func ValidateIndex(index, maxIndex int, op string) error {
	return NewIndexValidator(index, maxIndex, op).Validate()
}

// ValidateUnique is a convenience function for uniqueness validation
func ValidateUnique(labels []label.Label, op, context string) error {
	return NewUniqueValidator(labels, op, context).Validate()
}
