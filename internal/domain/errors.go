package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEvaluation signals a failure computing a filter, sort, group or field expression.
	ErrEvaluation = errors.New("evaluation error")
	// ErrResolution signals a source expression that cannot be resolved against the index.
	ErrResolution = errors.New("source resolution error")
	// ErrFault signals an unexpected failure inside index access or evaluation.
	ErrFault = errors.New("fault")

	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a query that cannot be built from its wire form.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrTooManyViews signals that the live view limit is reached.
	ErrTooManyViews = errors.New("too many open views")
	// ErrViewClosed signals an operation on a deactivated view.
	ErrViewClosed = errors.New("view closed")
)

// QueryError is the single error value produced by query execution.
// Error() is the user-facing message; Unwrap() exposes the category.
type QueryError struct {
	Kind    error
	Message string
}

func (e *QueryError) Error() string { return e.Message }

func (e *QueryError) Unwrap() error { return e.Kind }

// NewEvaluationError creates an evaluation error.
func NewEvaluationError(format string, args ...any) error {
	return &QueryError{Kind: ErrEvaluation, Message: fmt.Sprintf(format, args...)}
}

// NewResolutionError creates a resolution error.
func NewResolutionError(format string, args ...any) error {
	return &QueryError{Kind: ErrResolution, Message: fmt.Sprintf(format, args...)}
}

// NewFault wraps an unexpected failure.
func NewFault(cause any) error {
	return &QueryError{Kind: ErrFault, Message: fmt.Sprintf("unexpected fault: %v", cause)}
}

// IsQueryError reports whether err is a query execution error of any category.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
