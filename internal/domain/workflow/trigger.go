package workflow

// Trigger represents an intent that can cause a claim status transition
type Trigger string

const (
	TriggerCoordinatorApprove Trigger = "COORDINATOR_APPROVE"
	TriggerCoordinatorReject  Trigger = "COORDINATOR_REJECT"
	TriggerManagerApprove     Trigger = "MANAGER_APPROVE"
	TriggerManagerReject      Trigger = "MANAGER_REJECT"
	TriggerAutoApprove        Trigger = "AUTO_APPROVE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
