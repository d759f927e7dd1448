package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/claim-lifecycle/internal/application/compliance"
	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SubmitClaimInput is a submitter's new claim
type SubmitClaimInput struct {
	SubmitterID int64           `json:"submitter_id" validate:"required,gt=0"`
	LineItems   []LineItemInput `json:"line_items" validate:"required,min=1,dive"`
	Documents   []DocumentInput `json:"documents" validate:"dive"`
}

// LineItemInput is one day of work on a new claim
type LineItemInput struct {
	ActivityDate entity.Date `json:"activity_date"`
	Hours        float64     `json:"hours" validate:"gt=0,lte=24"`
	Description  string      `json:"description" validate:"max=500"`
}

// DocumentInput is metadata of a file already stored by the caller
type DocumentInput struct {
	FileName  string `json:"file_name" validate:"required,max=255"`
	FilePath  string `json:"file_path" validate:"required"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes" validate:"gte=0"`
}

// ClaimDetails is a claim with everything a reviewer looks at.
// AvailableActions lists the intents the claim's current status accepts.
type ClaimDetails struct {
	Claim            *entity.Claim             `json:"claim"`
	History          []*entity.ApprovalHistory `json:"history"`
	Compliance       *compliance.CheckResult   `json:"compliance,omitempty"`
	AvailableActions []workflow.Trigger        `json:"available_actions"`
}

// ClaimService handles submission and read access to claims
type ClaimService interface {
	Submit(ctx context.Context, input *SubmitClaimInput) (*entity.Claim, error)
	GetDetails(ctx context.Context, claimID int64) (*ClaimDetails, error)
	Validate(ctx context.Context, claimID int64) (*compliance.ValidationResult, error)
	CoordinatorQueue(ctx context.Context) ([]*entity.Claim, error)
	ManagerQueue(ctx context.Context) ([]*entity.Claim, error)
	ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error)
}

type claimServiceImpl struct {
	claimRepo     port.ClaimRepository
	submitterRepo port.SubmitterRepository
	documentRepo  port.DocumentRepository
	txManager     port.TransactionManager
	validator     *compliance.Validator
	checker       *compliance.Checker
	audit         AuditLog
	lifecycle     workflow.StateMachineBuilder
	now           func() time.Time
	logger        Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claimRepo port.ClaimRepository,
	submitterRepo port.SubmitterRepository,
	documentRepo port.DocumentRepository,
	txManager port.TransactionManager,
	validator *compliance.Validator,
	checker *compliance.Checker,
	audit AuditLog,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:     claimRepo,
		submitterRepo: submitterRepo,
		documentRepo:  documentRepo,
		txManager:     txManager,
		validator:     validator,
		checker:       checker,
		audit:         audit,
		lifecycle:     workflow.NewClaimLifecycle(),
		now:           time.Now,
		logger:        logger,
	}
}

// Submit prices every line item at the submitter's contracted rate, validates and stores the claim
func (s *claimServiceImpl) Submit(ctx context.Context, input *SubmitClaimInput) (*entity.Claim, error) {
	if input == nil {
		return nil, apperror.Validation(0, "claim input is required")
	}
	if err := entity.Validate(input); err != nil {
		return nil, apperror.Validation(0, err.Error())
	}
	for i, li := range input.LineItems {
		if li.ActivityDate.IsZero() {
			return nil, apperror.Validation(0, fmt.Sprintf("line item %d has no activity date", i+1))
		}
	}

	submitter, err := s.submitterRepo.GetByID(ctx, input.SubmitterID)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to load submitter", err)
	}
	if submitter == nil {
		return nil, apperror.NotFound("submitter", input.SubmitterID)
	}

	now := s.now()
	claim := &entity.Claim{
		ClaimNumber: newClaimNumber(now),
		SubmitterID: submitter.ID,
		SubmittedAt: now,
		Status:      workflow.StateSubmitted,
		LineItems:   make([]entity.LineItem, 0, len(input.LineItems)),
	}
	for _, li := range input.LineItems {
		claim.LineItems = append(claim.LineItems, entity.LineItem{
			ActivityDate: li.ActivityDate,
			Hours:        li.Hours,
			Description:  strings.TrimSpace(li.Description),
		})
	}
	claim.RecalculateTotals(submitter.DefaultRateCents)

	if result := s.validator.Validate(ctx, claim); !result.Valid {
		s.logger.Info("Claim failed pre-submission validation", "submitter_id", submitter.ID, "reason", result.ErrorMessage)
		return nil, apperror.Validation(0, result.ErrorMessage)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return err
		}
		for _, d := range input.Documents {
			doc := entity.SupportingDocument{
				ClaimID:    claim.ID,
				FileName:   d.FileName,
				FilePath:   d.FilePath,
				MimeType:   d.MimeType,
				SizeBytes:  d.SizeBytes,
				UploadedAt: now,
			}
			if err := s.documentRepo.Create(txCtx, &doc); err != nil {
				return err
			}
			claim.Documents = append(claim.Documents, doc)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit claim", "submitter_id", submitter.ID, "error", err)
		return nil, apperror.DependencyFailure(0, "failed to store claim", err)
	}

	s.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"submitter_id", claim.SubmitterID,
		"total_hours", claim.TotalHours,
		"total_amount_cents", claim.TotalAmountCents)
	return claim, nil
}

// GetDetails attaches documents, history and an advisory compliance verdict
func (s *claimServiceImpl) GetDetails(ctx context.Context, claimID int64) (*ClaimDetails, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	docs, err := s.documentRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, apperror.DependencyFailure(claimID, "failed to load documents", err)
	}
	claim.Documents = make([]entity.SupportingDocument, 0, len(docs))
	for _, d := range docs {
		claim.Documents = append(claim.Documents, *d)
	}

	history, err := s.audit.History(ctx, claimID)
	if err != nil {
		return nil, apperror.DependencyFailure(claimID, "failed to load approval history", err)
	}

	details := &ClaimDetails{
		Claim:            claim,
		History:          history,
		AvailableActions: s.lifecycle.Build(claim.Status).PermittedTriggers(),
	}
	if verdict, err := s.checker.Check(claim); err == nil {
		details.Compliance = verdict
	} else {
		s.logger.Error("Compliance check skipped", "claim_id", claimID, "error", err)
	}
	return details, nil
}

// Validate re-runs pre-submission validation against a stored claim
func (s *claimServiceImpl) Validate(ctx context.Context, claimID int64) (*compliance.ValidationResult, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, claim), nil
}

func (s *claimServiceImpl) CoordinatorQueue(ctx context.Context) ([]*entity.Claim, error) {
	return s.listByStatuses(ctx, workflow.CoordinatorQueue())
}

func (s *claimServiceImpl) ManagerQueue(ctx context.Context) ([]*entity.Claim, error) {
	return s.listByStatuses(ctx, workflow.ManagerQueue())
}

func (s *claimServiceImpl) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	claims, err := s.claimRepo.ListBySubmitter(ctx, submitterID)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to list submitter claims", err)
	}
	return claims, nil
}

func (s *claimServiceImpl) listByStatuses(ctx context.Context, statuses []workflow.State) ([]*entity.Claim, error) {
	claims, err := s.claimRepo.ListByStatuses(ctx, statuses)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to list claims", err)
	}
	return claims, nil
}

func (s *claimServiceImpl) getClaim(ctx context.Context, claimID int64) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperror.DependencyFailure(claimID, "failed to load claim", err)
	}
	if claim == nil {
		return nil, apperror.NotFound("claim", claimID)
	}
	return claim, nil
}

// newClaimNumber returns CLM-YYYYMMDD-XXXXXXXX
func newClaimNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CLM-%s-%s", now.Format("20060102"), suffix)
}
