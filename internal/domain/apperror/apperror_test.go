package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("claim", 7), KindNotFound},
		{"wrapped validation", fmt.Errorf("submit: %w", Validation(1, "reason required")), KindValidation},
		{"conflict", ConcurrencyConflict(3, errors.New("stale")), KindConcurrencyConflict},
		{"plain error", errors.New("boom"), KindInternal},
		{"context", context.Canceled, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIllegalTransition_Message(t *testing.T) {
	err := IllegalTransition(5, "CLM-1", []workflow.State{workflow.StateCoordinatorApproved}, workflow.StateSubmitted)

	assert.Equal(t, KindIllegalTransition, err.Kind)
	assert.Equal(t, int64(5), err.ClaimID)
	assert.Equal(t, workflow.StateSubmitted, err.Actual)
	assert.Contains(t, err.Error(), "current status is 'Submitted'")
	assert.Contains(t, err.Error(), "it must be 'CoordinatorApproved'")
}

func TestIsRetryable(t *testing.T) {
	cause := errors.New("version mismatch")
	err := ConcurrencyConflict(9, cause)

	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsRetryable(Validation(9, "x")))
	assert.False(t, IsRetryable(nil))
}
