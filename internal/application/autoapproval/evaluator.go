package autoapproval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// ErrClaimNotLoaded is returned when the evaluator is handed a nil claim or one without line items.
var ErrClaimNotLoaded = errors.New("claim must be loaded with line items before evaluation")

// Check names. Consumers key off these and their order.
const (
	CheckHoursUnderThreshold = "Hours Under Threshold"
	CheckRateApproved        = "Rate Approved"
	CheckNoPreviousRejection = "No Previous Rejections"
	CheckBudgetAvailable     = "Budget Available"
)

const (
	reasonRate        = "Hourly rate does not match submitter's contract rate"
	reasonRejections  = "Submitter has previous claim rejections - manual review needed"
	reasonBudget      = "Insufficient budget allocated for this claim"
	decisionAutomatic = "Auto-Approved"
	decisionManual    = "Manual Review"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Check is the outcome of one rule in the battery.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// Result is the aggregate decision of the battery.
type Result struct {
	CanAutoApprove bool     `json:"can_auto_approve"`
	FailedReasons  []string `json:"failed_reasons"`
	Checks         []Check  `json:"checks"`
}

// Evaluator runs the fixed auto-approval battery. It is read-only.
type Evaluator struct {
	limits     policy.Limits
	submitters port.SubmitterRepository
	claims     port.ClaimRepository
	budget     port.BudgetLedger
	logger     Logger
}

// NewEvaluator creates an Evaluator. A nil ledger is replaced by UnlimitedBudget.
func NewEvaluator(
	limits policy.Limits,
	submitters port.SubmitterRepository,
	claims port.ClaimRepository,
	budget port.BudgetLedger,
	logger Logger,
) *Evaluator {
	if budget == nil {
		budget = UnlimitedBudget{}
	}
	return &Evaluator{
		limits:     limits,
		submitters: submitters,
		claims:     claims,
		budget:     budget,
		logger:     logger,
	}
}

// Evaluate runs every check in order. A failing lookup fails its check and never aborts the battery.
func (e *Evaluator) Evaluate(ctx context.Context, claim *entity.Claim) (*Result, error) {
	if !claim.HasLineItems() {
		return nil, ErrClaimNotLoaded
	}

	checks := []Check{
		{
			Name:   CheckHoursUnderThreshold,
			Passed: claim.TotalHours < e.limits.AutoApproveMaxHours,
			Reason: fmt.Sprintf("High hours (>%g) require manual review", e.limits.AutoApproveMaxHours),
		},
		{
			Name:   CheckRateApproved,
			Passed: e.isRateApproved(ctx, claim),
			Reason: reasonRate,
		},
		{
			Name:   CheckNoPreviousRejection,
			Passed: e.hasNoRejections(ctx, claim.SubmitterID),
			Reason: reasonRejections,
		},
		{
			Name:   CheckBudgetAvailable,
			Passed: e.hasBudget(ctx, claim),
			Reason: reasonBudget,
		},
	}

	result := &Result{
		CanAutoApprove: true,
		FailedReasons:  []string{},
		Checks:         checks,
	}
	for _, c := range checks {
		if !c.Passed {
			result.CanAutoApprove = false
			result.FailedReasons = append(result.FailedReasons, c.Reason)
		}
	}

	decision := decisionAutomatic
	if !result.CanAutoApprove {
		decision = decisionManual
	}
	e.logger.Info("Claim evaluated for auto-approval",
		"claim_id", claim.ID,
		"decision", decision,
		"reasons", strings.Join(result.FailedReasons, "; "))

	return result, nil
}

func (e *Evaluator) isRateApproved(ctx context.Context, claim *entity.Claim) bool {
	submitter, err := e.submitters.GetByID(ctx, claim.SubmitterID)
	if err != nil {
		e.logger.Error("Rate check failed", "claim_id", claim.ID, "submitter_id", claim.SubmitterID, "error", err)
		return false
	}
	if submitter == nil {
		e.logger.Error("Submitter not found for rate check", "claim_id", claim.ID, "submitter_id", claim.SubmitterID)
		return false
	}
	return claim.RateCents == submitter.DefaultRateCents
}

func (e *Evaluator) hasNoRejections(ctx context.Context, submitterID int64) bool {
	count, err := e.claims.CountBySubmitterAndStatuses(ctx, submitterID, workflow.RejectedStates())
	if err != nil {
		e.logger.Error("Rejection history check failed", "submitter_id", submitterID, "error", err)
		return false
	}
	return count == 0
}

func (e *Evaluator) hasBudget(ctx context.Context, claim *entity.Claim) bool {
	ok, err := e.budget.HasBudget(ctx, claim)
	if err != nil {
		e.logger.Error("Budget check failed", "claim_id", claim.ID, "error", err)
		return false
	}
	return ok
}
