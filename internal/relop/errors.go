package relop

import (
	"errors"
	"fmt"
	"strings"
)

// ConstructionError reports a structural violation detected while
// building a node.
//
// Construction errors are always fatal and always synchronous: the
// constructor that detects the violation returns the error immediately
// and no node is produced. The error names the offending node kind and
// the columns involved so the caller can fix the pipeline without
// touching a database.
type ConstructionError struct {
	// Code identifies the violation category.
	Code ConstructionErrorCode

	// Node is the kind of node being constructed (e.g. "drop_columns").
	Node string

	// Columns lists the column names involved in the violation.
	Columns []string

	// Message is a human-readable description.
	Message string
}

// ConstructionErrorCode categorizes construction errors.
type ConstructionErrorCode string

const (
	// ErrCodeUnknownColumn indicates a referenced column is absent from
	// the child's output.
	ErrCodeUnknownColumn ConstructionErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeDuplicateColumn indicates an output column list would
	// contain the same name twice.
	ErrCodeDuplicateColumn ConstructionErrorCode = "DUPLICATE_COLUMN"

	// ErrCodeEmptyArgument indicates a required list argument was empty.
	ErrCodeEmptyArgument ConstructionErrorCode = "EMPTY_ARGUMENT"

	// ErrCodeNameCollision indicates a produced name collides with an
	// existing, unrelated column.
	ErrCodeNameCollision ConstructionErrorCode = "NAME_COLLISION"

	// ErrCodeBadExpression indicates a malformed expression (unsupported
	// literal type, aggregate outside a partition, empty operator).
	ErrCodeBadExpression ConstructionErrorCode = "BAD_EXPRESSION"

	// ErrCodeBadArgument indicates a scalar argument out of range
	// (e.g. pick_top_k with k < 1).
	ErrCodeBadArgument ConstructionErrorCode = "BAD_ARGUMENT"
)

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("%s: %s: %s (columns: %s)", e.Node, e.Code, e.Message, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: %s: %s", e.Node, e.Code, e.Message)
}

// IsConstructionError returns true if err is (or wraps) a
// ConstructionError. Uses errors.As to handle wrapped errors.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

func newErr(code ConstructionErrorCode, node, format string, cols ...string) *ConstructionError {
	return &ConstructionError{Code: code, Node: node, Columns: cols, Message: format}
}
