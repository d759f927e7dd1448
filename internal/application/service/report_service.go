package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// Dashboard summarises settlement activity for HR
type Dashboard struct {
	SettledClaims       int                    `json:"settled_claims"`
	SettledAmountCents  int64                  `json:"settled_amount_cents"`
	Submitters          int                    `json:"submitters"`
	AwaitingCoordinator int                    `json:"awaiting_coordinator"`
	AwaitingManager     int                    `json:"awaiting_manager"`
	StatusCounts        map[workflow.State]int `json:"status_counts"`
}

// PaymentReminder is one settled claim still waiting for payment
type PaymentReminder struct {
	ClaimID        int64  `json:"claim_id"`
	ClaimNumber    string `json:"claim_number"`
	SubmitterID    int64  `json:"submitter_id"`
	SubmitterEmail string `json:"submitter_email"`
	AmountCents    int64  `json:"amount_cents"`
}

// ReportService builds HR reports over settled claims and tracks their payment
type ReportService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	MonthlyInvoice(ctx context.Context, year, month int) ([]byte, error)
	PaymentReminders(ctx context.Context) ([]PaymentReminder, error)
	MarkPaymentProcessed(ctx context.Context, claimID int64) (*entity.Claim, error)
}

type reportServiceImpl struct {
	claimRepo     port.ClaimRepository
	submitterRepo port.SubmitterRepository
	renderer      port.InvoiceRenderer
	logger        Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	claimRepo port.ClaimRepository,
	submitterRepo port.SubmitterRepository,
	renderer port.InvoiceRenderer,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		claimRepo:     claimRepo,
		submitterRepo: submitterRepo,
		renderer:      renderer,
		logger:        logger,
	}
}

func (s *reportServiceImpl) Dashboard(ctx context.Context) (*Dashboard, error) {
	dashboard := &Dashboard{StatusCounts: make(map[workflow.State]int)}
	for _, status := range workflow.AllStates() {
		totals, err := s.claimRepo.TotalsByStatus(ctx, status)
		if err != nil {
			return nil, apperror.DependencyFailure(0, "failed to total claims by status", err)
		}
		dashboard.StatusCounts[status] = totals.Count
		if status == workflow.StateSettled {
			dashboard.SettledClaims = totals.Count
			dashboard.SettledAmountCents = totals.AmountCents
		}
	}
	for _, status := range workflow.CoordinatorQueue() {
		dashboard.AwaitingCoordinator += dashboard.StatusCounts[status]
	}
	for _, status := range workflow.ManagerQueue() {
		dashboard.AwaitingManager += dashboard.StatusCounts[status]
	}

	submitters, err := s.submitterRepo.List(ctx)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to list submitters", err)
	}
	dashboard.Submitters = len(submitters)
	return dashboard, nil
}

// PaymentReminders logs one reminder per settled claim not yet paid and returns them
func (s *reportServiceImpl) PaymentReminders(ctx context.Context) ([]PaymentReminder, error) {
	settled, err := s.claimRepo.ListByStatuses(ctx, []workflow.State{workflow.StateSettled})
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to list settled claims", err)
	}

	reminders := make([]PaymentReminder, 0)
	submitters := make(map[int64]*entity.Submitter)
	for _, c := range settled {
		if c.PaymentProcessed {
			continue
		}
		sub, ok := submitters[c.SubmitterID]
		if !ok {
			if sub, err = s.submitterRepo.GetByID(ctx, c.SubmitterID); err != nil {
				return nil, apperror.DependencyFailure(c.ID, "failed to load submitter", err)
			}
			submitters[c.SubmitterID] = sub
		}

		reminder := PaymentReminder{
			ClaimID:     c.ID,
			ClaimNumber: c.ClaimNumber,
			SubmitterID: c.SubmitterID,
			AmountCents: c.TotalAmountCents,
		}
		if sub != nil {
			reminder.SubmitterEmail = sub.Email
		}
		s.logger.Info("Payment reminder",
			"submitter_email", reminder.SubmitterEmail,
			"claim_number", reminder.ClaimNumber,
			"amount", policy.FormatCents(reminder.AmountCents))
		reminders = append(reminders, reminder)
	}

	s.logger.Info("Payment reminders processed", "count", len(reminders))
	return reminders, nil
}

// MarkPaymentProcessed flags a settled claim as paid. Marking a paid claim again is a no-op.
func (s *reportServiceImpl) MarkPaymentProcessed(ctx context.Context, claimID int64) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperror.DependencyFailure(claimID, "failed to load claim", err)
	}
	if claim == nil {
		return nil, apperror.NotFound("claim", claimID)
	}
	if claim.Status != workflow.StateSettled {
		return nil, apperror.Validation(claimID, fmt.Sprintf("claim %s is %s; only settled claims can be paid", claim.ClaimNumber, claim.Status))
	}
	if claim.PaymentProcessed {
		return claim, nil
	}

	claim.PaymentProcessed = true
	if err := s.claimRepo.UpdateStatus(ctx, claim); err != nil {
		if errors.Is(err, port.ErrVersionConflict) {
			return nil, apperror.ConcurrencyConflict(claimID, err)
		}
		s.logger.Error("Failed to record payment", "claim_id", claimID, "error", err)
		return nil, apperror.DependencyFailure(claimID, "failed to record payment", err)
	}

	s.logger.Info("Claim payment recorded", "claim_id", claimID, "claim_number", claim.ClaimNumber)
	return claim, nil
}

// MonthlyInvoice renders the settled claims submitted in the given month
func (s *reportServiceImpl) MonthlyInvoice(ctx context.Context, year, month int) ([]byte, error) {
	if month < 1 || month > 12 {
		return nil, apperror.Validation(0, "month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return nil, apperror.Validation(0, "year is out of range")
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	claims, err := s.claimRepo.ListByStatusSubmittedBetween(ctx, workflow.StateSettled, from, to)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to list settled claims", err)
	}

	submitters := make(map[int64]*entity.Submitter)
	for _, c := range claims {
		if _, ok := submitters[c.SubmitterID]; ok {
			continue
		}
		sub, err := s.submitterRepo.GetByID(ctx, c.SubmitterID)
		if err != nil {
			return nil, apperror.DependencyFailure(c.ID, "failed to load submitter", err)
		}
		if sub != nil {
			submitters[c.SubmitterID] = sub
		}
	}

	data, err := s.renderer.Render(claims, submitters, year, month)
	if err != nil {
		s.logger.Error("Failed to render monthly invoice", "year", year, "month", month, "error", err)
		return nil, apperror.DependencyFailure(0, "failed to render invoice", err)
	}

	s.logger.Info("Monthly invoice generated", "year", year, "month", month, "claims", len(claims))
	return data, nil
}
