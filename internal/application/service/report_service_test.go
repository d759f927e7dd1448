package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

func TestReportService_MonthlyInvoice(t *testing.T) {
	claims := newFakeClaimRepo()
	submitters := newFakeSubmitterRepo(&entity.Submitter{ID: 1, Name: "Ada"}, &entity.Submitter{ID: 2, Name: "Grace"})
	renderer := &fakeRenderer{}
	svc := NewReportService(claims, submitters, renderer, &mockLogger{})

	march := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	claims.put(&entity.Claim{SubmitterID: 1, SubmittedAt: march, Status: workflow.StateSettled, TotalAmountCents: 1000})
	claims.put(&entity.Claim{SubmitterID: 2, SubmittedAt: march, Status: workflow.StateSettled, TotalAmountCents: 2000})
	claims.put(&entity.Claim{SubmitterID: 1, SubmittedAt: march, Status: workflow.StateCoordinatorApproved})
	claims.put(&entity.Claim{SubmitterID: 1, SubmittedAt: march.AddDate(0, 1, 0), Status: workflow.StateSettled})

	data, err := svc.MonthlyInvoice(context.Background(), 2024, 3)

	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), data)
	assert.Len(t, renderer.claims, 2)
	assert.Len(t, renderer.submitters, 2)
	assert.Equal(t, "Grace", renderer.submitters[2].Name)
}

func TestReportService_MonthlyInvoice_RejectsBadMonth(t *testing.T) {
	svc := NewReportService(newFakeClaimRepo(), newFakeSubmitterRepo(), &fakeRenderer{}, &mockLogger{})

	_, err := svc.MonthlyInvoice(context.Background(), 2024, 13)

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestReportService_Dashboard(t *testing.T) {
	claims := newFakeClaimRepo()
	submitters := newFakeSubmitterRepo(&entity.Submitter{ID: 1}, &entity.Submitter{ID: 2})
	svc := NewReportService(claims, submitters, &fakeRenderer{}, &mockLogger{})
	claims.put(&entity.Claim{SubmitterID: 1, Status: workflow.StateSettled, TotalAmountCents: 30000})
	claims.put(&entity.Claim{SubmitterID: 2, Status: workflow.StateSettled, TotalAmountCents: 45050})
	claims.put(&entity.Claim{SubmitterID: 2, Status: workflow.StateSubmitted})
	claims.put(&entity.Claim{SubmitterID: 2, Status: workflow.StateCoordinatorApproved})

	dashboard, err := svc.Dashboard(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Dashboard{
		SettledClaims:       2,
		SettledAmountCents:  75050,
		Submitters:          2,
		AwaitingCoordinator: 1,
		AwaitingManager:     1,
		StatusCounts: map[workflow.State]int{
			workflow.StateSubmitted:           1,
			workflow.StatePolicyReview:        0,
			workflow.StateCoordinatorApproved: 1,
			workflow.StateSettled:             2,
			workflow.StateRejected:            0,
			workflow.StateManagerRejected:     0,
		},
	}, dashboard)
}

// recordingLogger keeps Info messages for assertions
type recordingLogger struct {
	infos []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {}

func (l *recordingLogger) count(msg string) int {
	n := 0
	for _, m := range l.infos {
		if m == msg {
			n++
		}
	}
	return n
}

func TestReportService_PaymentReminders(t *testing.T) {
	claims := newFakeClaimRepo()
	submitters := newFakeSubmitterRepo(
		&entity.Submitter{ID: 1, Email: "ada@example.edu"},
		&entity.Submitter{ID: 2, Email: "grace@example.edu"},
	)
	logger := &recordingLogger{}
	svc := NewReportService(claims, submitters, &fakeRenderer{}, logger)

	unpaid := claims.put(&entity.Claim{ClaimNumber: "CLM-1", SubmitterID: 1, Status: workflow.StateSettled, TotalAmountCents: 30000})
	claims.put(&entity.Claim{ClaimNumber: "CLM-2", SubmitterID: 2, Status: workflow.StateSettled, TotalAmountCents: 45050, PaymentProcessed: true})
	claims.put(&entity.Claim{ClaimNumber: "CLM-3", SubmitterID: 2, Status: workflow.StateCoordinatorApproved, TotalAmountCents: 1000})
	other := claims.put(&entity.Claim{ClaimNumber: "CLM-4", SubmitterID: 2, Status: workflow.StateSettled, TotalAmountCents: 2000})

	reminders, err := svc.PaymentReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []PaymentReminder{
		{ClaimID: unpaid.ID, ClaimNumber: "CLM-1", SubmitterID: 1, SubmitterEmail: "ada@example.edu", AmountCents: 30000},
		{ClaimID: other.ID, ClaimNumber: "CLM-4", SubmitterID: 2, SubmitterEmail: "grace@example.edu", AmountCents: 2000},
	}, reminders)
	assert.Equal(t, 2, logger.count("Payment reminder"))
}

func TestReportService_PaymentReminders_NoneDue(t *testing.T) {
	svc := NewReportService(newFakeClaimRepo(), newFakeSubmitterRepo(), &fakeRenderer{}, &mockLogger{})

	reminders, err := svc.PaymentReminders(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, reminders)
	assert.Empty(t, reminders)
}

func TestReportService_MarkPaymentProcessed(t *testing.T) {
	claims := newFakeClaimRepo()
	svc := NewReportService(claims, newFakeSubmitterRepo(), &fakeRenderer{}, &mockLogger{})
	manager := int64(3)
	settled := claims.put(&entity.Claim{ClaimNumber: "CLM-1", SubmitterID: 1, Status: workflow.StateSettled, ManagerID: &manager})
	pending := claims.put(&entity.Claim{ClaimNumber: "CLM-2", SubmitterID: 1, Status: workflow.StateCoordinatorApproved})

	paid, err := svc.MarkPaymentProcessed(context.Background(), settled.ID)
	require.NoError(t, err)
	assert.True(t, paid.PaymentProcessed)
	assert.True(t, claims.stored(settled.ID).PaymentProcessed)
	assert.Equal(t, int64(2), claims.stored(settled.ID).Version)

	again, err := svc.MarkPaymentProcessed(context.Background(), settled.ID)
	require.NoError(t, err)
	assert.True(t, again.PaymentProcessed)
	assert.Equal(t, int64(2), claims.stored(settled.ID).Version, "marking a paid claim again does not write")

	_, err = svc.MarkPaymentProcessed(context.Background(), pending.ID)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.False(t, claims.stored(pending.ID).PaymentProcessed)

	_, err = svc.MarkPaymentProcessed(context.Background(), 404)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestReportService_MarkPaymentProcessed_Conflict(t *testing.T) {
	claims := newFakeClaimRepo()
	svc := NewReportService(claims, newFakeSubmitterRepo(), &fakeRenderer{}, &mockLogger{})
	settled := claims.put(&entity.Claim{ClaimNumber: "CLM-1", SubmitterID: 1, Status: workflow.StateSettled})
	claims.beforeUpdate = func() {
		claims.mu.Lock()
		claims.claims[settled.ID].Version++
		claims.mu.Unlock()
	}

	_, err := svc.MarkPaymentProcessed(context.Background(), settled.ID)

	assert.True(t, apperror.IsRetryable(err))
}

func TestSubmitterService_UpdateRate(t *testing.T) {
	submitters := newFakeSubmitterRepo(&entity.Submitter{ID: 1, Name: "Ada", DefaultRateCents: 15000})
	svc := NewSubmitterService(submitters, &mockLogger{})

	updated, err := svc.UpdateRate(context.Background(), 1, 16500)
	require.NoError(t, err)
	assert.Equal(t, int64(16500), updated.DefaultRateCents)
	assert.Equal(t, int64(16500), submitters.submitters[1].DefaultRateCents)

	_, err = svc.UpdateRate(context.Background(), 1, 0)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.UpdateRate(context.Background(), 7, 100)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestSubmitterService_Create(t *testing.T) {
	submitters := newFakeSubmitterRepo(&entity.Submitter{ID: 1, Name: "Ada", Email: "ada@example.edu", DefaultRateCents: 15000})
	svc := NewSubmitterService(submitters, &mockLogger{})

	created, err := svc.Create(context.Background(), &CreateSubmitterInput{
		Name:             "  Grace Hopper ",
		Email:            "Grace@Example.edu",
		ContractorNumber: "C-102",
		DefaultRateCents: 17500,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)
	assert.Equal(t, "Grace Hopper", created.Name)
	assert.Equal(t, "grace@example.edu", created.Email)
	assert.Equal(t, int64(17500), submitters.submitters[2].DefaultRateCents)
}

func TestSubmitterService_Create_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input *CreateSubmitterInput
	}{
		{"nil input", nil},
		{"missing name", &CreateSubmitterInput{Email: "x@example.edu", DefaultRateCents: 100}},
		{"bad email", &CreateSubmitterInput{Name: "X", Email: "not-an-email", DefaultRateCents: 100}},
		{"zero rate", &CreateSubmitterInput{Name: "X", Email: "x@example.edu"}},
		{"duplicate email", &CreateSubmitterInput{Name: "Ada Again", Email: "ADA@example.edu", DefaultRateCents: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitters := newFakeSubmitterRepo(&entity.Submitter{ID: 1, Name: "Ada", Email: "ada@example.edu", DefaultRateCents: 15000})
			svc := NewSubmitterService(submitters, &mockLogger{})

			_, err := svc.Create(context.Background(), tt.input)

			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.Len(t, submitters.submitters, 1)
		})
	}
}

func TestAuditLog_RejectsInvalidEntry(t *testing.T) {
	history := &fakeHistoryRepo{}
	audit := NewAuditLog(history, &mockLogger{})

	err := audit.Record(context.Background(), &entity.ApprovalHistory{
		ClaimID:        1,
		ApproverID:     2,
		Role:           entity.RoleCoordinator,
		Action:         entity.ActionApproved,
		PreviousStatus: workflow.State("Coordinator Approved"),
		NewStatus:      workflow.StateSettled,
	})

	assert.Error(t, err)
	assert.Empty(t, history.entries)
}
