package workflow

import (
	"database/sql/driver"
	"fmt"
)

// State is a claim status label. The labels are part of the wire contract: every queue,
// filter and stored row uses exactly these values.
type State string

const (
	StateSubmitted           State = "Submitted"
	StatePolicyReview        State = "PolicyReview"
	StateCoordinatorApproved State = "CoordinatorApproved"
	StateSettled             State = "Settled"
	StateRejected            State = "Rejected"
	StateManagerRejected     State = "ManagerRejected"
)

var validStates = map[State]bool{
	StateSubmitted:           true,
	StatePolicyReview:        true,
	StateCoordinatorApproved: true,
	StateSettled:             true,
	StateRejected:            true,
	StateManagerRejected:     true,
}

var terminalStates = map[State]bool{
	StateSettled:         true,
	StateRejected:        true,
	StateManagerRejected: true,
}

// AllStates returns every valid state in lifecycle order.
func AllStates() []State {
	return []State{
		StateSubmitted,
		StatePolicyReview,
		StateCoordinatorApproved,
		StateSettled,
		StateRejected,
		StateManagerRejected,
	}
}

// RejectedStates are the terminal rejection outcomes counted as a submitter's rejection history.
func RejectedStates() []State {
	return []State{StateRejected, StateManagerRejected}
}

// ParseState converts a label into a State, rejecting anything outside the closed set.
// No trimming or case folding is applied: "Coordinator Approved" is not "CoordinatorApproved".
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	return st, nil
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, string(s))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Value implements driver.Valuer so an invalid label can never be written to a store.
func (s State) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *State) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidState, src)
	}
}
