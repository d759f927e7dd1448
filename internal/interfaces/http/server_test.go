package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claim-lifecycle/internal/application/autoapproval"
	"github.com/garyjia/claim-lifecycle/internal/application/compliance"
	"github.com/garyjia/claim-lifecycle/internal/application/service"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
	"github.com/garyjia/claim-lifecycle/internal/report"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fakeClaims struct {
	service.ClaimService
	submitted *service.SubmitClaimInput
	details   *service.ClaimDetails
	err       error
}

func (f *fakeClaims) Submit(ctx context.Context, input *service.SubmitClaimInput) (*entity.Claim, error) {
	f.submitted = input
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Claim{ID: 1, ClaimNumber: "CLM-20240301-0000ABCD", Status: workflow.StateSubmitted}, nil
}

func (f *fakeClaims) GetDetails(ctx context.Context, claimID int64) (*service.ClaimDetails, error) {
	return f.details, f.err
}

func (f *fakeClaims) CoordinatorQueue(ctx context.Context) ([]*entity.Claim, error) {
	return []*entity.Claim{{ID: 4, Status: workflow.StatePolicyReview}}, nil
}

type fakeLifecycle struct {
	service.LifecycleService
	actor  entity.Actor
	reason string
	err    error
	calls  int
}

func (f *fakeLifecycle) CoordinatorApprove(ctx context.Context, claimID int64, actor entity.Actor) (*service.TransitionResult, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &service.TransitionResult{
		Claim:          &entity.Claim{ID: claimID},
		PreviousStatus: workflow.StateSubmitted,
		NewStatus:      workflow.StateCoordinatorApproved,
		Action:         entity.ActionApproved,
	}, nil
}

func (f *fakeLifecycle) ManagerReject(ctx context.Context, claimID int64, actor entity.Actor, reason string) (*service.TransitionResult, error) {
	f.actor, f.reason = actor, reason
	return &service.TransitionResult{NewStatus: workflow.StateManagerRejected}, f.err
}

func (f *fakeLifecycle) AutoApprove(ctx context.Context, claimID int64) (*service.AutoApprovalOutcome, error) {
	f.calls++
	return &service.AutoApprovalOutcome{Evaluation: &autoapproval.Result{FailedReasons: []string{}}}, nil
}

type fakeReports struct {
	service.ReportService
}

func (fakeReports) MonthlyInvoice(ctx context.Context, year, month int) ([]byte, error) {
	if month > 12 {
		return nil, apperror.Validation(0, "month must be between 1 and 12")
	}
	return []byte("xlsx"), nil
}

func (fakeReports) Dashboard(ctx context.Context) (*service.Dashboard, error) {
	return &service.Dashboard{SettledClaims: 2}, nil
}

func (fakeReports) PaymentReminders(ctx context.Context) ([]service.PaymentReminder, error) {
	return []service.PaymentReminder{{ClaimID: 8, ClaimNumber: "CLM-8", SubmitterEmail: "ada@example.edu", AmountCents: 30000}}, nil
}

func (fakeReports) MarkPaymentProcessed(ctx context.Context, claimID int64) (*entity.Claim, error) {
	if claimID == 9 {
		return nil, apperror.Validation(claimID, "only settled claims can be paid")
	}
	return &entity.Claim{ID: claimID, Status: workflow.StateSettled, PaymentProcessed: true}, nil
}

type fakeSubmitters struct {
	service.SubmitterService
	rate    int64
	created *service.CreateSubmitterInput
}

func (f *fakeSubmitters) Create(ctx context.Context, input *service.CreateSubmitterInput) (*entity.Submitter, error) {
	f.created = input
	return &entity.Submitter{ID: 5, Name: input.Name, Email: input.Email, DefaultRateCents: input.DefaultRateCents}, nil
}

func (f *fakeSubmitters) UpdateRate(ctx context.Context, id int64, rateCents int64) (*entity.Submitter, error) {
	f.rate = rateCents
	return &entity.Submitter{ID: id, DefaultRateCents: rateCents}, nil
}

type harness struct {
	claims     *fakeClaims
	lifecycle  *fakeLifecycle
	submitters *fakeSubmitters
	server     *Server
}

func newHarness(cfg ServerConfig) *harness {
	h := &harness{
		claims:     &fakeClaims{},
		lifecycle:  &fakeLifecycle{},
		submitters: &fakeSubmitters{},
	}
	h.server = NewServer(cfg, Services{
		Claims:     h.claims,
		Lifecycle:  h.lifecycle,
		Submitters: h.submitters,
		Reports:    fakeReports{},
	}, nopLogger{})
	return h
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var (
	asCoordinator = map[string]string{"X-Actor-ID": "2", "X-Actor-Role": "Coordinator"}
	asManager     = map[string]string{"X-Actor-ID": "3", "X-Actor-Role": "Manager"}
	asHR          = map[string]string{"X-Actor-ID": "4", "X-Actor-Role": "HR"}
)

func TestHealthCheck(t *testing.T) {
	rec := newHarness(DefaultServerConfig()).do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestSubmitClaim(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodPost, "/api/claims",
		`{"submitter_id":1,"line_items":[{"activity_date":"2024-03-04","hours":2.5,"description":"marking"}]}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, h.claims.submitted)
	assert.Equal(t, int64(1), h.claims.submitted.SubmitterID)
	require.Len(t, h.claims.submitted.LineItems, 1)
	assert.Equal(t, "2024-03-04", h.claims.submitted.LineItems[0].ActivityDate.String())
}

func TestSubmitClaim_MalformedBody(t *testing.T) {
	rec := newHarness(DefaultServerConfig()).do(http.MethodPost, "/api/claims", `{"line_items":[{"activity_date":"04/03/2024"}]}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"not found", apperror.NotFound("claim", 9), http.StatusNotFound, "NOT_FOUND"},
		{"validation", apperror.Validation(9, "bad"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"illegal", apperror.IllegalTransition(9, "CLM-1", workflow.ManagerQueue(), workflow.StateSettled), http.StatusConflict, "ILLEGAL_TRANSITION"},
		{"conflict", apperror.ConcurrencyConflict(9, nil), http.StatusConflict, "CONCURRENCY_CONFLICT"},
		{"identity", apperror.IdentityUnresolved(9, nil), http.StatusUnauthorized, "IDENTITY_UNRESOLVED"},
		{"dependency", apperror.DependencyFailure(9, "store down", nil), http.StatusBadGateway, "DEPENDENCY_FAILURE"},
		{"forbidden", apperror.Forbidden(9, "nope"), http.StatusForbidden, "FORBIDDEN"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(DefaultServerConfig())
			h.lifecycle.err = tt.err

			rec := h.do(http.MethodPost, "/api/coordinator/claims/9/approve", "", asCoordinator)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			if tt.kind != "" {
				assert.Equal(t, tt.kind, body["kind"])
			}
		})
	}
}

func TestIllegalTransitionCarriesStates(t *testing.T) {
	h := newHarness(DefaultServerConfig())
	h.lifecycle.err = apperror.IllegalTransition(9, "CLM-1", workflow.CoordinatorQueue(), workflow.StateSettled)

	rec := h.do(http.MethodPost, "/api/coordinator/claims/9/approve", "", asCoordinator)

	details := decode(t, rec)["details"].(map[string]interface{})
	assert.Equal(t, "Settled", details["actual_status"])
	assert.Equal(t, []interface{}{"Submitted", "PolicyReview"}, details["required_status"])
}

func TestCoordinatorApprove_PassesHeaderActor(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodPost, "/api/coordinator/claims/9/approve", "", asCoordinator)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.Actor{ID: 2, Role: entity.RoleCoordinator}, h.lifecycle.actor)
}

func TestCoordinatorApprove_NoHeadersPassesUnresolvedActor(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	h.do(http.MethodPost, "/api/coordinator/claims/9/approve", "", nil)

	assert.False(t, h.lifecycle.actor.Resolved())
}

func TestManagerReject_BodyOptional(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodPost, "/api/manager/claims/9/reject", "", asManager)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.lifecycle.reason)

	rec = h.do(http.MethodPost, "/api/manager/claims/9/reject", `{"reason":"over budget"}`, asManager)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "over budget", h.lifecycle.reason)
}

func TestInvalidPathID(t *testing.T) {
	rec := newHarness(DefaultServerConfig()).do(http.MethodGet, "/api/claims/abc", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetClaim_Details(t *testing.T) {
	h := newHarness(DefaultServerConfig())
	h.claims.details = &service.ClaimDetails{
		Claim:      &entity.Claim{ID: 5, Status: workflow.StatePolicyReview},
		History:    []*entity.ApprovalHistory{},
		Compliance: &compliance.CheckResult{Compliant: false, Violations: []string{"rate"}},
	}

	rec := h.do(http.MethodGet, "/api/claims/5", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "PolicyReview", data["claim"].(map[string]interface{})["status"])
}

func TestHRRoutesRequireHRRole(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/hr/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/hr/dashboard", "", asCoordinator).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/hr/dashboard", "", asHR).Code)
}

func TestUpdateSubmitterRate(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodPut, "/api/hr/submitters/1/rate", `{"rate_cents":16500}`, asHR)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(16500), h.submitters.rate)

	rec = h.do(http.MethodPut, "/api/hr/submitters/1/rate", `{"rate_cents":-5}`, asHR)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["kind"])
	assert.Equal(t, int64(16500), h.submitters.rate)

	rec = h.do(http.MethodPut, "/api/hr/submitters/1/rate", `{"rate_cents":"lots"}`, asHR)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSubmitter(t *testing.T) {
	h := newHarness(DefaultServerConfig())
	body := `{"name":"Grace Hopper","email":"grace@example.edu","contractor_number":"C-102","default_rate_cents":17500}`

	rec := h.do(http.MethodPost, "/api/hr/submitters", body, asHR)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, h.submitters.created)
	assert.Equal(t, int64(17500), h.submitters.created.DefaultRateCents)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["id"])
}

func TestCreateSubmitter_Refusals(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers map[string]string
		status  int
	}{
		{"not hr", `{"name":"G","email":"g@example.edu","default_rate_cents":100}`, asCoordinator, http.StatusForbidden},
		{"bad email", `{"name":"G","email":"nope","default_rate_cents":100}`, asHR, http.StatusUnprocessableEntity},
		{"no rate", `{"name":"G","email":"g@example.edu"}`, asHR, http.StatusUnprocessableEntity},
		{"malformed", `{"name":`, asHR, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(DefaultServerConfig())

			rec := h.do(http.MethodPost, "/api/hr/submitters", tt.body, tt.headers)

			assert.Equal(t, tt.status, rec.Code)
			assert.Nil(t, h.submitters.created)
		})
	}
}

func TestSubmitClaim_InvalidBodyNeverReachesService(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodPost, "/api/claims", `{"submitter_id":1,"line_items":[]}`, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["kind"])
	assert.Nil(t, h.claims.submitted)
}

func TestPaymentReminders(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/hr/payment-reminders", "", asManager).Code)

	rec := h.do(http.MethodPost, "/api/hr/payment-reminders", "", asHR)
	assert.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	assert.Len(t, data["reminders"], 1)
}

func TestMarkPaymentProcessed(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodPost, "/api/hr/claims/8/payment-processed", "", asHR)
	assert.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["payment_processed"])

	rec = h.do(http.MethodPost, "/api/hr/claims/9/payment-processed", "", asHR)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConflictsAreMarkedRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"concurrency conflict", apperror.ConcurrencyConflict(9, nil), true},
		{"illegal transition", apperror.IllegalTransition(9, "CLM-1", workflow.ManagerQueue(), workflow.StateSettled), false},
		{"validation", apperror.Validation(9, "bad"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(DefaultServerConfig())
			h.lifecycle.err = tt.err

			rec := h.do(http.MethodPost, "/api/coordinator/claims/9/approve", "", asCoordinator)

			body := decode(t, rec)
			if tt.retryable {
				assert.Equal(t, true, body["retryable"])
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			} else {
				assert.NotContains(t, body, "retryable")
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestMonthlyInvoice(t *testing.T) {
	h := newHarness(DefaultServerConfig())

	rec := h.do(http.MethodGet, "/api/hr/invoices/2024/3", "", asHR)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.InvoiceContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Invoice_2024_3.xlsx")
	assert.Equal(t, "xlsx", rec.Body.String())

	rec = h.do(http.MethodGet, "/api/hr/invoices/2024/13", "", asHR)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAutoApprove_RateLimited(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.AutoApprovePerMinute = 1
	cfg.AutoApproveBurst = 1
	h := newHarness(cfg)

	first := h.do(http.MethodPost, "/api/claims/9/auto-approve", "", nil)
	second := h.do(http.MethodPost, "/api/claims/9/auto-approve", "", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, h.lifecycle.calls)
}

func TestCoordinatorQueue(t *testing.T) {
	rec := newHarness(DefaultServerConfig()).do(http.MethodGet, "/api/coordinator/claims", "", asCoordinator)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)
}
