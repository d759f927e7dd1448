package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claim-lifecycle/internal/application/compliance"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

type claimFixture struct {
	claims     *fakeClaimRepo
	submitters *fakeSubmitterRepo
	documents  *fakeDocumentRepo
	history    *fakeHistoryRepo
	service    ClaimService
}

func newClaimFixture() *claimFixture {
	f := &claimFixture{
		claims:     newFakeClaimRepo(),
		submitters: newFakeSubmitterRepo(&entity.Submitter{ID: 1, Name: "Ada", Email: "ada@example.com", DefaultRateCents: 17500}),
		documents:  &fakeDocumentRepo{},
		history:    &fakeHistoryRepo{},
	}
	limits := policy.DefaultLimits()
	logger := &mockLogger{}
	f.service = NewClaimService(
		f.claims,
		f.submitters,
		f.documents,
		&fakeTxManager{},
		compliance.NewValidator(limits, f.submitters, logger),
		compliance.NewChecker(limits),
		NewAuditLog(f.history, logger),
		logger,
	)
	return f
}

func TestClaimService_Submit(t *testing.T) {
	f := newClaimFixture()
	input := &SubmitClaimInput{
		SubmitterID: 1,
		LineItems: []LineItemInput{
			{ActivityDate: entity.NewDate(2024, 4, 1), Hours: 2.5, Description: " Tutorial "},
			{ActivityDate: entity.NewDate(2024, 4, 2), Hours: 3.25, Description: "Marking"},
		},
		Documents: []DocumentInput{{FileName: "timesheet.pdf", FilePath: "uploads/timesheet.pdf", MimeType: "application/pdf", SizeBytes: 1024}},
	}

	claim, err := f.service.Submit(context.Background(), input)

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CLM-\d{8}-[0-9A-F]{8}$`), claim.ClaimNumber)
	assert.Equal(t, workflow.StateSubmitted, claim.Status)
	assert.Equal(t, int64(17500), claim.RateCents)
	assert.Equal(t, 5.75, claim.TotalHours)
	assert.Equal(t, int64(100625), claim.TotalAmountCents)
	assert.Equal(t, "Tutorial", claim.LineItems[0].Description)
	assert.True(t, claim.TotalsConsistent())

	stored := f.claims.stored(claim.ID)
	assert.Equal(t, claim.TotalAmountCents, stored.TotalAmountCents)
	for _, item := range stored.LineItems {
		assert.Equal(t, int64(17500), item.RateCents)
	}
	require.Len(t, f.documents.docs, 1)
	assert.Equal(t, claim.ID, f.documents.docs[0].ClaimID)
}

func TestClaimService_Submit_Rejections(t *testing.T) {
	day := entity.NewDate(2024, 4, 1)
	tests := []struct {
		name     string
		input    *SubmitClaimInput
		wantKind apperror.Kind
		wantMsg  string
	}{
		{"nil input", nil, apperror.KindValidation, "required"},
		{"no line items", &SubmitClaimInput{SubmitterID: 1}, apperror.KindValidation, "LineItems"},
		{"zero hours", &SubmitClaimInput{SubmitterID: 1, LineItems: []LineItemInput{{ActivityDate: day, Hours: 0}}}, apperror.KindValidation, "Hours"},
		{"missing date", &SubmitClaimInput{SubmitterID: 1, LineItems: []LineItemInput{{Hours: 2}}}, apperror.KindValidation, "activity date"},
		{"unknown submitter", &SubmitClaimInput{SubmitterID: 9, LineItems: []LineItemInput{{ActivityDate: day, Hours: 2}}}, apperror.KindNotFound, "submitter 9"},
		{
			name: "daily cap exceeded",
			input: &SubmitClaimInput{SubmitterID: 1, LineItems: []LineItemInput{
				{ActivityDate: day, Hours: 5},
				{ActivityDate: day, Hours: 4},
			}},
			wantKind: apperror.KindValidation,
			wantMsg:  "Hours on 2024-04-01 (9.00) exceed daily limit (8.00)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture()

			_, err := f.service.Submit(context.Background(), tt.input)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Zero(t, f.claims.writes)
		})
	}
}

func TestClaimService_GetDetails(t *testing.T) {
	f := newClaimFixture()
	claim, err := f.service.Submit(context.Background(), &SubmitClaimInput{
		SubmitterID: 1,
		LineItems:   []LineItemInput{{ActivityDate: entity.NewDate(2024, 4, 1), Hours: 2}},
		Documents:   []DocumentInput{{FileName: "a.pdf", FilePath: "uploads/a.pdf"}},
	})
	require.NoError(t, err)
	f.history.entries = append(f.history.entries, &entity.ApprovalHistory{ClaimID: claim.ID, Action: entity.ActionFlagged})

	details, err := f.service.GetDetails(context.Background(), claim.ID)

	require.NoError(t, err)
	assert.Len(t, details.Claim.Documents, 1)
	assert.Len(t, details.History, 1)
	require.NotNil(t, details.Compliance)
	assert.False(t, details.Compliance.Compliant, "contract rate 175.00 differs from policy rate 150.00")
	assert.Equal(t, []workflow.Trigger{
		workflow.TriggerCoordinatorApprove,
		workflow.TriggerCoordinatorReject,
		workflow.TriggerAutoApprove,
	}, details.AvailableActions)

	_, err = f.service.GetDetails(context.Background(), 999)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestClaimService_ValidateStoredClaim(t *testing.T) {
	f := newClaimFixture()
	claim, err := f.service.Submit(context.Background(), &SubmitClaimInput{
		SubmitterID: 1,
		LineItems:   []LineItemInput{{ActivityDate: entity.NewDate(2024, 4, 1), Hours: 2}},
	})
	require.NoError(t, err)

	f.submitters.submitters[1].DefaultRateCents = 20000
	result, err := f.service.Validate(context.Background(), claim.ID)

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Hourly rate (175.00) does not match contract rate (200.00)", result.ErrorMessage)
}

func TestClaimService_Queues(t *testing.T) {
	f := newClaimFixture()
	at := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, status := range []workflow.State{
		workflow.StateSubmitted, workflow.StatePolicyReview, workflow.StateCoordinatorApproved,
		workflow.StateSettled, workflow.StateRejected,
	} {
		f.claims.put(&entity.Claim{SubmitterID: 1, SubmittedAt: at, Status: status})
	}

	coordinator, err := f.service.CoordinatorQueue(context.Background())
	require.NoError(t, err)
	manager, err := f.service.ManagerQueue(context.Background())
	require.NoError(t, err)
	mine, err := f.service.ListBySubmitter(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, coordinator, 2)
	require.Len(t, manager, 1)
	assert.Equal(t, workflow.StateCoordinatorApproved, manager[0].Status)
	assert.Len(t, mine, 5)
}
