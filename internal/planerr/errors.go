// Package planerr defines the coded errors returned by the matching and
// plan-assembly engine. Every code is recoverable and scoped to one request.
package planerr

import (
	"errors"
	"fmt"
)

// Code classifies an engine failure.
type Code string

const (
	// CodeInvalidQuery marks input outside documented numeric or categorical bounds.
	CodeInvalidQuery Code = "invalid_query"
	// CodeNoMatchFound marks a valid query that no catalog recipe satisfies.
	CodeNoMatchFound Code = "no_match_found"
	// CodePlanAssemblyFailed marks a multi-day plan with at least one unfillable slot.
	CodePlanAssemblyFailed Code = "plan_assembly_failed"
	// CodePersistenceConflict marks a lost race on the per-user current record.
	CodePersistenceConflict Code = "persistence_conflict"
)

// Error carries a code, a human-readable message and, for assembly
// failures, the slot that could not be filled.
type Error struct {
	Code     Code
	Message  string
	Day      int
	MealType string
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Code == CodePlanAssemblyFailed && e.Day > 0 {
		msg = fmt.Sprintf("%s (day %d, %s)", msg, e.Day, e.MealType)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Code == CodePersistenceConflict
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with the given code that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// InvalidQuery builds a CodeInvalidQuery error with a formatted reason.
func InvalidQuery(format string, args ...any) *Error {
	return New(CodeInvalidQuery, fmt.Sprintf(format, args...))
}

// NoMatch builds a CodeNoMatchFound error.
func NoMatch(message string) *Error {
	return New(CodeNoMatchFound, message)
}

// AssemblyFailed builds a CodePlanAssemblyFailed error for one slot.
func AssemblyFailed(day int, mealType string, cause error) *Error {
	return &Error{
		Code:     CodePlanAssemblyFailed,
		Message:  "could not fill every meal slot",
		Day:      day,
		MealType: mealType,
		Cause:    cause,
	}
}

// Conflict builds a CodePersistenceConflict error.
func Conflict(cause error) *Error {
	return Wrap(CodePersistenceConflict, "current record changed concurrently, retry the request", cause)
}

// As extracts the engine error from err, if any.
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost engine error in err's chain.
func CodeOf(err error) (Code, bool) {
	pe, ok := As(err)
	if !ok {
		return "", false
	}
	return pe.Code, true
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
