package entity

import (
	"math"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// Claim is a submitter's request for payment of hours worked.
type Claim struct {
	ID               int64                `json:"id"`
	ClaimNumber      string               `json:"claim_number" validate:"required,max=32"`
	SubmitterID      int64                `json:"submitter_id" validate:"required,gt=0"`
	SubmittedAt      time.Time            `json:"submitted_at" validate:"required"`
	Status           workflow.State       `json:"status" validate:"claimstatus"`
	CoordinatorID    *int64               `json:"coordinator_id,omitempty"`
	ManagerID        *int64               `json:"manager_id,omitempty"`
	VerifiedAt       *time.Time           `json:"verified_at,omitempty"`
	RejectionReason  string               `json:"rejection_reason,omitempty" validate:"max=500"`
	TotalHours       float64              `json:"total_hours" validate:"gte=0"`
	RateCents        int64                `json:"rate_cents" validate:"gte=0"`
	TotalAmountCents int64                `json:"total_amount_cents" validate:"gte=0"`
	PaymentProcessed bool                 `json:"payment_processed"`
	Version          int64                `json:"version"`
	LineItems        []LineItem           `json:"line_items,omitempty" validate:"dive"`
	Documents        []SupportingDocument `json:"documents,omitempty" validate:"dive"`
}

// LineItem is one day's worth of claimed work.
type LineItem struct {
	ID           int64   `json:"id"`
	ClaimID      int64   `json:"claim_id"`
	ActivityDate Date    `json:"activity_date"`
	Hours        float64 `json:"hours" validate:"gt=0,lte=24"`
	RateCents    int64   `json:"rate_cents" validate:"gte=0"`
	Description  string  `json:"description" validate:"max=500"`
	AmountCents  int64   `json:"amount_cents" validate:"gte=0"`
}

// SupportingDocument is metadata for a file attached to a claim. Content lives elsewhere.
type SupportingDocument struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id"`
	FileName   string    `json:"file_name" validate:"required,max=255"`
	FilePath   string    `json:"file_path" validate:"required"`
	MimeType   string    `json:"mime_type,omitempty"`
	SizeBytes  int64     `json:"size_bytes" validate:"gte=0"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RoundHours rounds h to hundredths of an hour.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// LineAmountCents is hours multiplied by rate, rounded to the nearest cent.
func LineAmountCents(hours float64, rateCents int64) int64 {
	return int64(math.Round(hours * float64(rateCents)))
}

// RecalculateTotals applies rateCents to every line item and recomputes the aggregates.
func (c *Claim) RecalculateTotals(rateCents int64) {
	var hours float64
	var amount int64
	for i := range c.LineItems {
		item := &c.LineItems[i]
		item.RateCents = rateCents
		item.AmountCents = LineAmountCents(item.Hours, rateCents)
		hours += item.Hours
		amount += item.AmountCents
	}
	c.RateCents = rateCents
	c.TotalHours = RoundHours(hours)
	c.TotalAmountCents = amount
}

// TotalsConsistent reports whether the aggregates match the line items.
func (c *Claim) TotalsConsistent() bool {
	var hours float64
	var amount int64
	for _, item := range c.LineItems {
		if item.AmountCents != LineAmountCents(item.Hours, item.RateCents) {
			return false
		}
		hours += item.Hours
		amount += item.AmountCents
	}
	return RoundHours(hours) == c.TotalHours && amount == c.TotalAmountCents
}

// HasLineItems reports whether line items were loaded with the claim.
func (c *Claim) HasLineItems() bool {
	return c != nil && len(c.LineItems) > 0
}
