package entity

import "time"

// Submitter is a contractor who claims hours against a contracted rate.
type Submitter struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name" validate:"required,max=100"`
	Email            string    `json:"email" validate:"required,email"`
	ContractorNumber string    `json:"contractor_number" validate:"max=50"`
	DefaultRateCents int64     `json:"default_rate_cents" validate:"gt=0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
