package entity

// Role is the capacity in which an actor performs an action.
type Role string

const (
	RoleSubmitter   Role = "Submitter"
	RoleCoordinator Role = "Coordinator"
	RoleManager     Role = "Manager"
	RoleHR          Role = "HR"
	RoleSystem      Role = "System"
)

var validRoles = map[Role]struct{}{
	RoleSubmitter:   {},
	RoleCoordinator: {},
	RoleManager:     {},
	RoleHR:          {},
	RoleSystem:      {},
}

func (r Role) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

// Action is the kind of decision recorded in the audit trail.
type Action string

const (
	ActionApproved     Action = "Approved"
	ActionRejected     Action = "Rejected"
	ActionAutoApproved Action = "AutoApproved"
	ActionFlagged      Action = "Flagged"
)

// Actor identifies who performs a lifecycle action.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// Resolved reports whether the actor can be attributed in the audit trail.
func (a Actor) Resolved() bool {
	return a.ID > 0 && a.Role.IsValid()
}

// Default comments written to the audit trail.
const (
	DefaultManagerRejectReason = "Claim rejected by academic manager."
	AutoApprovedComment        = "Approved via automated workflow"
)
