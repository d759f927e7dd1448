package entity

import (
	"time"

	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// ApprovalHistory is one immutable entry in a claim's audit trail.
type ApprovalHistory struct {
	ID             int64          `json:"id"`
	ClaimID        int64          `json:"claim_id" validate:"required,gt=0"`
	ApproverID     int64          `json:"approver_id"`
	Role           Role           `json:"role" validate:"actorrole"`
	Action         Action         `json:"action" validate:"required,oneof=Approved Rejected AutoApproved Flagged"`
	Comment        string         `json:"comment,omitempty"`
	PreviousStatus workflow.State `json:"previous_status" validate:"claimstatus"`
	NewStatus      workflow.State `json:"new_status" validate:"claimstatus"`
	CreatedAt      time.Time      `json:"created_at"`
}
