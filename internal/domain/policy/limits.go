// Package policy holds the organisation-wide limits every claim is checked against.
package policy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// Limits is shared read-only by every component that judges a claim.
type Limits struct {
	MaxHoursPerDay      float64 `mapstructure:"max_hours_per_day"`
	MaxHoursPerMonth    float64 `mapstructure:"max_hours_per_month"`
	OvertimeThreshold   float64 `mapstructure:"overtime_threshold"`
	OvertimeMultiplier  float64 `mapstructure:"overtime_multiplier"`
	PolicyRateCents     int64   `mapstructure:"policy_rate_cents"`
	FallbackRateCents   int64   `mapstructure:"fallback_rate_cents"`
	AutoApproveMaxHours float64 `mapstructure:"auto_approve_max_hours"`
}

// DefaultLimits returns the limits used when configuration does not override them.
func DefaultLimits() Limits {
	return Limits{
		MaxHoursPerDay:      8,
		MaxHoursPerMonth:    200,
		OvertimeThreshold:   160,
		OvertimeMultiplier:  1.5,
		PolicyRateCents:     15000,
		FallbackRateCents:   15000,
		AutoApproveMaxHours: 100,
	}
}

// Validate rejects limits no claim could sensibly be judged against.
func (l Limits) Validate() error {
	var errs []error
	if l.MaxHoursPerDay <= 0 || l.MaxHoursPerDay > 24 {
		errs = append(errs, fmt.Errorf("max hours per day must be in (0, 24], got %v", l.MaxHoursPerDay))
	}
	if l.MaxHoursPerMonth <= 0 {
		errs = append(errs, fmt.Errorf("max hours per month must be positive, got %v", l.MaxHoursPerMonth))
	}
	if l.OvertimeThreshold <= 0 {
		errs = append(errs, fmt.Errorf("overtime threshold must be positive, got %v", l.OvertimeThreshold))
	}
	if l.OvertimeMultiplier < 1 {
		errs = append(errs, fmt.Errorf("overtime multiplier must be at least 1, got %v", l.OvertimeMultiplier))
	}
	if l.PolicyRateCents <= 0 {
		errs = append(errs, fmt.Errorf("policy rate must be positive, got %d", l.PolicyRateCents))
	}
	if l.FallbackRateCents <= 0 {
		errs = append(errs, fmt.Errorf("fallback rate must be positive, got %d", l.FallbackRateCents))
	}
	if l.AutoApproveMaxHours <= 0 {
		errs = append(errs, fmt.Errorf("auto-approve hour threshold must be positive, got %v", l.AutoApproveMaxHours))
	}
	return errors.Join(errs...)
}

// DailyHours is the total claimed on one calendar date.
type DailyHours struct {
	Date  entity.Date
	Hours float64
}

// HoursByDate sums line item hours per calendar date, in ascending date order.
func HoursByDate(items []entity.LineItem) []DailyHours {
	totals := make(map[entity.Date]float64)
	for _, item := range items {
		totals[item.ActivityDate] += item.Hours
	}

	days := make([]DailyHours, 0, len(totals))
	for date, hours := range totals {
		days = append(days, DailyHours{Date: date, Hours: entity.RoundHours(hours)})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// FormatCents renders an amount of cents as a decimal currency value.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
