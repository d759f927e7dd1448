package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
)

// ValidationResult carries every failure joined into one message.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Validator checks claim aggregates and the claimed rate against the submitter's contract.
type Validator struct {
	limits     policy.Limits
	submitters port.SubmitterRepository
	logger     Logger
}

// NewValidator creates a Validator
func NewValidator(limits policy.Limits, submitters port.SubmitterRepository, logger Logger) *Validator {
	return &Validator{
		limits:     limits,
		submitters: submitters,
		logger:     logger,
	}
}

// Validate never short-circuits; a failed submitter lookup becomes a failure message.
func (v *Validator) Validate(ctx context.Context, claim *entity.Claim) *ValidationResult {
	if claim == nil {
		return &ValidationResult{Valid: false, ErrorMessage: "Claim cannot be null"}
	}

	var errs []string

	if claim.TotalHours > v.limits.MaxHoursPerMonth {
		errs = append(errs, fmt.Sprintf("Monthly hours (%.2f) exceed maximum allowed (%.2f)",
			claim.TotalHours, v.limits.MaxHoursPerMonth))
	}

	for _, day := range policy.HoursByDate(claim.LineItems) {
		if day.Hours > v.limits.MaxHoursPerDay {
			errs = append(errs, fmt.Sprintf("Hours on %s (%.2f) exceed daily limit (%.2f)",
				day.Date, day.Hours, v.limits.MaxHoursPerDay))
		}
	}

	v.logOvertime(claim)

	if msg := v.checkContractRate(ctx, claim); msg != "" {
		errs = append(errs, msg)
	}

	if len(errs) > 0 {
		return &ValidationResult{Valid: false, ErrorMessage: strings.Join(errs, "; ")}
	}
	return &ValidationResult{Valid: true}
}

func (v *Validator) logOvertime(claim *entity.Claim) {
	if claim.TotalHours <= v.limits.OvertimeThreshold {
		return
	}
	overtime := entity.RoundHours(claim.TotalHours - v.limits.OvertimeThreshold)
	rate := claim.RateCents
	if rate <= 0 {
		rate = v.limits.FallbackRateCents
	}
	amount := entity.LineAmountCents(overtime*v.limits.OvertimeMultiplier, rate)

	v.logger.Info("Claim has overtime",
		"claim_id", claim.ID,
		"overtime_hours", overtime,
		"overtime_amount", policy.FormatCents(amount))
}

func (v *Validator) checkContractRate(ctx context.Context, claim *entity.Claim) string {
	submitter, err := v.submitters.GetByID(ctx, claim.SubmitterID)
	if err != nil {
		v.logger.Error("Failed to load submitter for rate check", "submitter_id", claim.SubmitterID, "error", err)
		return fmt.Sprintf("Contract rate for submitter %d could not be verified", claim.SubmitterID)
	}
	if submitter == nil {
		return fmt.Sprintf("Submitter %d not found", claim.SubmitterID)
	}
	if claim.RateCents != submitter.DefaultRateCents {
		return fmt.Sprintf("Hourly rate (%s) does not match contract rate (%s)",
			policy.FormatCents(claim.RateCents), policy.FormatCents(submitter.DefaultRateCents))
	}
	return ""
}
