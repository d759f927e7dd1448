// Package autoapproval decides whether a claim may skip coordinator review.
package autoapproval

import (
	"context"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// UnlimitedBudget approves every claim. It stands in until a real ledger is connected.
type UnlimitedBudget struct{}

func (UnlimitedBudget) HasBudget(ctx context.Context, claim *entity.Claim) (bool, error) {
	return true, nil
}

var _ port.BudgetLedger = UnlimitedBudget{}
