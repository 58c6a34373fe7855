// Package domain holds the validation rules and the authorization scope
// predicate shared by every resource handler. Rules never mutate state;
// they are evaluated before any row is written.
package domain

import "errors"

var (
	ErrRoleViolation     = errors.New("role violation")
	ErrInvalidRange      = errors.New("end date before start date")
	ErrMissingSchedule   = errors.New("either day_of_week or scheduled_date is required")
	ErrSelfReference     = errors.New("user cannot be their own coach")
	ErrDuplicateConflict = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// RuleError ties a rule violation to the field that caused it.
type RuleError struct {
	Field string
	Err   error
}

func (e *RuleError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *RuleError) Unwrap() error { return e.Err }

func fieldError(field string, err error) error {
	return &RuleError{Field: field, Err: err}
}
