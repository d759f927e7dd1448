package workflow

import "context"

type complianceKey struct{}

// WithCompliance records the compliance verdict the coordinator approval guard reads.
func WithCompliance(ctx context.Context, compliant bool) context.Context {
	return context.WithValue(ctx, complianceKey{}, compliant)
}

// isCompliant passes only when a verdict was recorded and it is compliant.
func isCompliant(ctx context.Context) bool {
	compliant, ok := ctx.Value(complianceKey{}).(bool)
	return ok && compliant
}

// NewClaimLifecycle returns the builder holding the claim approval pipeline.
// This table is the only place transitions are declared; every component asks it
// rather than comparing status strings itself.
//
// A coordinator approval of a Submitted claim lands in CoordinatorApproved when the
// context carries a compliant verdict and in PolicyReview otherwise.
func NewClaimLifecycle() StateMachineBuilder {
	builder := NewBuilder()

	builder.Configure(StateSubmitted).
		PermitIf(TriggerCoordinatorApprove, StateCoordinatorApproved, isCompliant).
		Permit(TriggerCoordinatorApprove, StatePolicyReview).
		Permit(TriggerCoordinatorReject, StateRejected).
		Permit(TriggerAutoApprove, StateCoordinatorApproved)

	builder.Configure(StatePolicyReview).
		Permit(TriggerCoordinatorReject, StateRejected).
		Permit(TriggerAutoApprove, StateCoordinatorApproved)

	builder.Configure(StateCoordinatorApproved).
		Permit(TriggerManagerApprove, StateSettled).
		Permit(TriggerManagerReject, StateManagerRejected)

	return builder
}

// CoordinatorQueue lists the states a coordinator works from.
func CoordinatorQueue() []State {
	return []State{StateSubmitted, StatePolicyReview}
}

// ManagerQueue lists the states a manager works from.
func ManagerQueue() []State {
	return []State{StateCoordinatorApproved}
}
