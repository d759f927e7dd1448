package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// TransitionError describes a trigger fired from a state that does not permit it.
// Required lists the states from which the trigger would have been accepted.
type TransitionError struct {
	Trigger  Trigger
	Actual   State
	Required []State
}

func (e *TransitionError) Error() string {
	required := make([]string, len(e.Required))
	for i, s := range e.Required {
		required[i] = string(s)
	}
	return fmt.Sprintf("%s: cannot fire %s from state %s (requires %s)",
		ErrInvalidTransition, e.Trigger, e.Actual, strings.Join(required, " or "))
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
