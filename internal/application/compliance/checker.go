// Package compliance judges claims against the shared policy limits.
//
// Checker is the approval gate run on stored claims; Validator is the
// pre-submission check that also consults the submitter's contract.
package compliance

import (
	"errors"
	"fmt"

	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
)

// ErrLineItemsNotLoaded is returned when a claim is judged without its line items.
var ErrLineItemsNotLoaded = errors.New("claim line items not loaded")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CheckResult is the advisory verdict of a compliance check.
type CheckResult struct {
	Compliant  bool     `json:"compliant"`
	Violations []string `json:"violations"`
}

// Checker evaluates line items against the policy rate and daily maximum.
type Checker struct {
	limits policy.Limits
}

// NewChecker creates a Checker bound to limits
func NewChecker(limits policy.Limits) *Checker {
	return &Checker{limits: limits}
}

// Check runs every rule and reports all violations in one pass. It never mutates claim.
//
// The rate rule reports each distinct off-policy rate once, so a claim mixing
// two wrong rates yields two rate violations rather than a single
// per-claim entry. The daily rule reports one violation per offending date.
func (c *Checker) Check(claim *entity.Claim) (*CheckResult, error) {
	if !claim.HasLineItems() {
		return nil, ErrLineItemsNotLoaded
	}

	violations := make([]string, 0)
	violations = append(violations, c.checkRates(claim.LineItems)...)
	violations = append(violations, c.checkDailyHours(claim.LineItems)...)

	return &CheckResult{
		Compliant:  len(violations) == 0,
		Violations: violations,
	}, nil
}

// One violation per distinct offending rate, in the order first seen.
func (c *Checker) checkRates(items []entity.LineItem) []string {
	var violations []string
	seen := make(map[int64]bool)
	for _, item := range items {
		if item.RateCents == c.limits.PolicyRateCents || seen[item.RateCents] {
			continue
		}
		seen[item.RateCents] = true
		violations = append(violations, fmt.Sprintf(
			"Hourly rate used (%s) does not match policy rate (%s)",
			policy.FormatCents(item.RateCents), policy.FormatCents(c.limits.PolicyRateCents),
		))
	}
	return violations
}

func (c *Checker) checkDailyHours(items []entity.LineItem) []string {
	var violations []string
	for _, day := range policy.HoursByDate(items) {
		if day.Hours > c.limits.MaxHoursPerDay {
			violations = append(violations, fmt.Sprintf(
				"Hours claimed on %s (%.2f hours) exceed the daily maximum of %.2f hours",
				day.Date, day.Hours, c.limits.MaxHoursPerDay,
			))
		}
	}
	return violations
}
