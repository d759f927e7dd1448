// Package apperror defines the structured outcomes returned across the application boundary.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// Kind classifies a failure so callers can act on it without parsing messages.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindIllegalTransition   Kind = "ILLEGAL_TRANSITION"
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	KindIdentityUnresolved  Kind = "IDENTITY_UNRESOLVED"
	KindDependencyFailure   Kind = "DEPENDENCY_FAILURE"
	KindForbidden           Kind = "FORBIDDEN"
	KindInternal            Kind = "INTERNAL"
)

// Error is a failure with enough detail for an operator to act on it.
type Error struct {
	Kind     Kind
	Message  string
	ClaimID  int64
	Required []workflow.State
	Actual   workflow.State
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports that a claim or submitter ID did not resolve.
func NotFound(entity string, id int64) *Error {
	e := &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
	if entity == "claim" {
		e.ClaimID = id
	}
	return e
}

// Validation reports missing or malformed input.
func Validation(claimID int64, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, ClaimID: claimID}
}

// IllegalTransition reports a claim that is not in a valid predecessor state.
func IllegalTransition(claimID int64, claimNumber string, required []workflow.State, actual workflow.State) *Error {
	names := make([]string, len(required))
	for i, s := range required {
		names[i] = "'" + string(s) + "'"
	}
	label := claimNumber
	if label == "" {
		label = fmt.Sprintf("%d", claimID)
	}
	return &Error{
		Kind:     KindIllegalTransition,
		Message:  fmt.Sprintf("claim %s cannot be processed: current status is '%s', it must be %s", label, actual, strings.Join(names, " or ")),
		ClaimID:  claimID,
		Required: required,
		Actual:   actual,
	}
}

// ConcurrencyConflict reports a lost optimistic write; the caller must refresh and retry.
func ConcurrencyConflict(claimID int64, err error) *Error {
	return &Error{
		Kind:    KindConcurrencyConflict,
		Message: fmt.Sprintf("claim %d was modified by another user, refresh and retry", claimID),
		ClaimID: claimID,
		Err:     err,
	}
}

// IdentityUnresolved reports that no actor could be attributed to an action.
func IdentityUnresolved(claimID int64, err error) *Error {
	return &Error{
		Kind:    KindIdentityUnresolved,
		Message: "caller identity could not be resolved",
		ClaimID: claimID,
		Err:     err,
	}
}

// Forbidden reports an actor whose role may not perform the action.
func Forbidden(claimID int64, message string) *Error {
	return &Error{Kind: KindForbidden, Message: message, ClaimID: claimID}
}

// DependencyFailure reports a failed read or write against a collaborator.
func DependencyFailure(claimID int64, message string, err error) *Error {
	return &Error{Kind: KindDependencyFailure, Message: message, ClaimID: claimID, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether re-issuing the same intent on fresh state may succeed.
func IsRetryable(err error) bool {
	return Is(err, KindConcurrencyConflict)
}
