package dynamo

import (
	"fmt"

	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

type claimItem struct {
	ID               int64          `dynamodbav:"id"`
	ClaimNumber      string         `dynamodbav:"claim_number"`
	SubmitterID      int64          `dynamodbav:"submitter_id"`
	SubmittedAt      string         `dynamodbav:"submitted_at"`
	Status           string         `dynamodbav:"status"`
	CoordinatorID    *int64         `dynamodbav:"coordinator_id,omitempty"`
	ManagerID        *int64         `dynamodbav:"manager_id,omitempty"`
	VerifiedAt       string         `dynamodbav:"verified_at,omitempty"`
	RejectionReason  string         `dynamodbav:"rejection_reason"`
	TotalHours       float64        `dynamodbav:"total_hours"`
	RateCents        int64          `dynamodbav:"rate_cents"`
	TotalAmountCents int64          `dynamodbav:"total_amount_cents"`
	PaymentProcessed bool           `dynamodbav:"payment_processed"`
	Version          int64          `dynamodbav:"version"`
	LineItems        []lineItemItem `dynamodbav:"line_items"`
	UpdatedAt        string         `dynamodbav:"updated_at"`
}

// line items live inside the claim item; ID is the 1-based position
type lineItemItem struct {
	ID           int64   `dynamodbav:"id"`
	ActivityDate string  `dynamodbav:"activity_date"`
	Hours        float64 `dynamodbav:"hours"`
	RateCents    int64   `dynamodbav:"rate_cents"`
	Description  string  `dynamodbav:"description"`
	AmountCents  int64   `dynamodbav:"amount_cents"`
}

type submitterItem struct {
	ID               int64  `dynamodbav:"id"`
	Name             string `dynamodbav:"name"`
	Email            string `dynamodbav:"email"`
	ContractorNumber string `dynamodbav:"contractor_number"`
	DefaultRateCents int64  `dynamodbav:"default_rate_cents"`
	CreatedAt        string `dynamodbav:"created_at"`
	UpdatedAt        string `dynamodbav:"updated_at"`
}

type historyItem struct {
	ClaimID        int64  `dynamodbav:"claim_id"`
	Seq            string `dynamodbav:"seq"`
	ID             int64  `dynamodbav:"id"`
	ApproverID     int64  `dynamodbav:"approver_id"`
	Role           string `dynamodbav:"role"`
	Action         string `dynamodbav:"action"`
	Comment        string `dynamodbav:"comment"`
	PreviousStatus string `dynamodbav:"previous_status"`
	NewStatus      string `dynamodbav:"new_status"`
	CreatedAt      string `dynamodbav:"created_at"`
}

type documentItem struct {
	ClaimID    int64  `dynamodbav:"claim_id"`
	ID         int64  `dynamodbav:"id"`
	FileName   string `dynamodbav:"file_name"`
	FilePath   string `dynamodbav:"file_path"`
	MimeType   string `dynamodbav:"mime_type"`
	SizeBytes  int64  `dynamodbav:"size_bytes"`
	UploadedAt string `dynamodbav:"uploaded_at"`
}

func toClaimItem(c *entity.Claim) claimItem {
	it := claimItem{
		ID:               c.ID,
		ClaimNumber:      c.ClaimNumber,
		SubmitterID:      c.SubmitterID,
		SubmittedAt:      formatTime(c.SubmittedAt),
		Status:           c.Status.String(),
		CoordinatorID:    c.CoordinatorID,
		ManagerID:        c.ManagerID,
		RejectionReason:  c.RejectionReason,
		TotalHours:       c.TotalHours,
		RateCents:        c.RateCents,
		TotalAmountCents: c.TotalAmountCents,
		PaymentProcessed: c.PaymentProcessed,
		Version:          c.Version,
		LineItems:        make([]lineItemItem, len(c.LineItems)),
	}
	if c.VerifiedAt != nil {
		it.VerifiedAt = formatTime(*c.VerifiedAt)
	}
	for i, li := range c.LineItems {
		it.LineItems[i] = lineItemItem{
			ID:           int64(i + 1),
			ActivityDate: li.ActivityDate.String(),
			Hours:        li.Hours,
			RateCents:    li.RateCents,
			Description:  li.Description,
			AmountCents:  li.AmountCents,
		}
	}
	return it
}

func fromClaimItem(it claimItem) (*entity.Claim, error) {
	status, err := workflow.ParseState(it.Status)
	if err != nil {
		return nil, fmt.Errorf("claim %d: %w", it.ID, err)
	}
	submittedAt, err := parseTime(it.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("claim %d submitted_at: %w", it.ID, err)
	}

	c := &entity.Claim{
		ID:               it.ID,
		ClaimNumber:      it.ClaimNumber,
		SubmitterID:      it.SubmitterID,
		SubmittedAt:      submittedAt,
		Status:           status,
		CoordinatorID:    it.CoordinatorID,
		ManagerID:        it.ManagerID,
		RejectionReason:  it.RejectionReason,
		TotalHours:       it.TotalHours,
		RateCents:        it.RateCents,
		TotalAmountCents: it.TotalAmountCents,
		PaymentProcessed: it.PaymentProcessed,
		Version:          it.Version,
	}
	if it.VerifiedAt != "" {
		verified, err := parseTime(it.VerifiedAt)
		if err != nil {
			return nil, fmt.Errorf("claim %d verified_at: %w", it.ID, err)
		}
		c.VerifiedAt = &verified
	}

	c.LineItems = make([]entity.LineItem, 0, len(it.LineItems))
	for _, li := range it.LineItems {
		date, err := entity.ParseDate(li.ActivityDate)
		if err != nil {
			return nil, fmt.Errorf("claim %d line item %d: %w", it.ID, li.ID, err)
		}
		c.LineItems = append(c.LineItems, entity.LineItem{
			ID:           li.ID,
			ClaimID:      it.ID,
			ActivityDate: date,
			Hours:        li.Hours,
			RateCents:    li.RateCents,
			Description:  li.Description,
			AmountCents:  li.AmountCents,
		})
	}
	return c, nil
}

func toSubmitterItem(s *entity.Submitter) submitterItem {
	return submitterItem{
		ID:               s.ID,
		Name:             s.Name,
		Email:            s.Email,
		ContractorNumber: s.ContractorNumber,
		DefaultRateCents: s.DefaultRateCents,
		CreatedAt:        formatTime(s.CreatedAt),
		UpdatedAt:        formatTime(s.UpdatedAt),
	}
}

func fromSubmitterItem(it submitterItem) *entity.Submitter {
	createdAt, _ := parseTime(it.CreatedAt)
	updatedAt, _ := parseTime(it.UpdatedAt)
	return &entity.Submitter{
		ID:               it.ID,
		Name:             it.Name,
		Email:            it.Email,
		ContractorNumber: it.ContractorNumber,
		DefaultRateCents: it.DefaultRateCents,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

func toHistoryItem(h *entity.ApprovalHistory) historyItem {
	createdAt := formatTime(h.CreatedAt)
	return historyItem{
		ClaimID:        h.ClaimID,
		Seq:            fmt.Sprintf("%s#%012d", createdAt, h.ID),
		ID:             h.ID,
		ApproverID:     h.ApproverID,
		Role:           string(h.Role),
		Action:         string(h.Action),
		Comment:        h.Comment,
		PreviousStatus: h.PreviousStatus.String(),
		NewStatus:      h.NewStatus.String(),
		CreatedAt:      createdAt,
	}
}

func fromHistoryItem(it historyItem) *entity.ApprovalHistory {
	createdAt, _ := parseTime(it.CreatedAt)
	return &entity.ApprovalHistory{
		ID:             it.ID,
		ClaimID:        it.ClaimID,
		ApproverID:     it.ApproverID,
		Role:           entity.Role(it.Role),
		Action:         entity.Action(it.Action),
		Comment:        it.Comment,
		PreviousStatus: workflow.State(it.PreviousStatus),
		NewStatus:      workflow.State(it.NewStatus),
		CreatedAt:      createdAt,
	}
}
