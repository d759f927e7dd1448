package workflow

import (
	"context"
	"fmt"
)

// StateMachine tracks the current state of one claim and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger

	// Sources returns the states from which the trigger is accepted
	Sources(trigger Trigger) []State
}

type stateMachine struct {
	currentState   State
	order          []State
	configurations map[State]*stateConfig
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire tries each configured transition in declaration order; the first whose guard passes wins.
// A trigger not configured for the current state yields a *TransitionError.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	if !m.CanFire(trigger) {
		return &TransitionError{
			Trigger:  trigger,
			Actual:   m.currentState,
			Required: m.Sources(trigger),
		}
	}

	for _, t := range m.configurations[m.currentState].transitions[trigger] {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

// PermittedTriggers lists the triggers accepted in the current state in declaration order.
// A guarded trigger is listed when it has at least one target, whatever its guards return.
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}
	return append([]Trigger{}, config.triggers...)
}

func (m *stateMachine) Sources(trigger Trigger) []State {
	var sources []State
	for _, state := range m.order {
		if len(m.configurations[state].transitions[trigger]) > 0 {
			sources = append(sources, state)
		}
	}
	return sources
}
