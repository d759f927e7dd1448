package port

import (
	"context"
	"errors"

	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// ErrIdentityUnresolved is returned when no actor can be established for the caller.
var ErrIdentityUnresolved = errors.New("caller identity unresolved")

// IdentityResolver establishes who is acting in the current request.
type IdentityResolver interface {
	Resolve(ctx context.Context) (entity.Actor, error)
}

// BudgetLedger answers whether a claim's amount can be funded.
type BudgetLedger interface {
	HasBudget(ctx context.Context, claim *entity.Claim) (bool, error)
}

// InvoiceRenderer turns settled claims into a downloadable document.
type InvoiceRenderer interface {
	Render(claims []*entity.Claim, submitters map[int64]*entity.Submitter, year, month int) ([]byte, error)
}
