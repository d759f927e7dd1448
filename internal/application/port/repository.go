package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// ErrVersionConflict is returned by a conditional write whose expected version is stale.
var ErrVersionConflict = errors.New("record was modified concurrently")

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	// Create inserts the claim with its line items and sets IDs and Version.
	Create(ctx context.Context, claim *entity.Claim) error

	// GetByID returns the claim with its line items, or nil if it does not exist.
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)

	// UpdateStatus writes the status-related fields if the stored version equals claim.Version,
	// then increments claim.Version. A stale version returns ErrVersionConflict.
	UpdateStatus(ctx context.Context, claim *entity.Claim) error

	// ListByStatuses returns claims in any of the statuses, oldest submission first.
	ListByStatuses(ctx context.Context, statuses []workflow.State) ([]*entity.Claim, error)

	// ListBySubmitter returns a submitter's claims, oldest submission first.
	ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error)

	CountBySubmitterAndStatuses(ctx context.Context, submitterID int64, statuses []workflow.State) (int, error)

	// ListByStatusSubmittedBetween returns claims in status submitted within [from, to).
	ListByStatusSubmittedBetween(ctx context.Context, status workflow.State, from, to time.Time) ([]*entity.Claim, error)

	// TotalsByStatus returns the count and summed amount of claims in status.
	TotalsByStatus(ctx context.Context, status workflow.State) (*ClaimTotals, error)
}

// ClaimTotals is an aggregate over a set of claims
type ClaimTotals struct {
	Count       int   `json:"count"`
	AmountCents int64 `json:"amount_cents"`
}

// SubmitterRepository defines persistence operations for Submitter
type SubmitterRepository interface {
	Create(ctx context.Context, submitter *entity.Submitter) error
	GetByID(ctx context.Context, id int64) (*entity.Submitter, error)
	List(ctx context.Context) ([]*entity.Submitter, error)
	UpdateRate(ctx context.Context, id int64, rateCents int64) error
}

// HistoryRepository is append-only; entries are never updated or deleted.
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApprovalHistory) error
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalHistory, error)
}

// DocumentRepository defines persistence operations for SupportingDocument metadata
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.SupportingDocument) error
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.SupportingDocument, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
