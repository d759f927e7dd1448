package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

func TestDefaultLimits_Valid(t *testing.T) {
	limits := DefaultLimits()

	assert.NoError(t, limits.Validate())
	assert.Equal(t, 8.0, limits.MaxHoursPerDay)
	assert.Equal(t, int64(15000), limits.PolicyRateCents)
	assert.Equal(t, 100.0, limits.AutoApproveMaxHours)
}

func TestLimits_Validate(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxHoursPerDay = 0
	limits.OvertimeMultiplier = 0.5

	err := limits.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max hours per day")
	assert.Contains(t, err.Error(), "overtime multiplier")
}

func TestHoursByDate_GroupsAndSorts(t *testing.T) {
	items := []entity.LineItem{
		{ActivityDate: entity.NewDate(2024, 1, 3), Hours: 5},
		{ActivityDate: entity.NewDate(2024, 1, 1), Hours: 2.25},
		{ActivityDate: entity.NewDate(2024, 1, 3), Hours: 4.5},
		{ActivityDate: entity.NewDate(2024, 1, 1), Hours: 1.1},
	}

	days := HoursByDate(items)

	assert.Equal(t, []DailyHours{
		{Date: entity.NewDate(2024, 1, 1), Hours: 3.35},
		{Date: entity.NewDate(2024, 1, 3), Hours: 9.5},
	}, days)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "150.00", FormatCents(15000))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-12.34", FormatCents(-1234))
}
