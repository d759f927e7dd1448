package service

import (
	"context"
	"strings"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/policy"
)

// CreateSubmitterInput registers a contractor and their contracted hourly rate
type CreateSubmitterInput struct {
	Name             string `json:"name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	ContractorNumber string `json:"contractor_number" validate:"max=50"`
	DefaultRateCents int64  `json:"default_rate_cents" validate:"gt=0"`
}

// SubmitterService manages submitter contracts
type SubmitterService interface {
	Create(ctx context.Context, input *CreateSubmitterInput) (*entity.Submitter, error)
	Get(ctx context.Context, id int64) (*entity.Submitter, error)
	List(ctx context.Context) ([]*entity.Submitter, error)
	UpdateRate(ctx context.Context, id int64, rateCents int64) (*entity.Submitter, error)
}

type submitterServiceImpl struct {
	submitterRepo port.SubmitterRepository
	logger        Logger
}

// NewSubmitterService creates a new SubmitterService
func NewSubmitterService(submitterRepo port.SubmitterRepository, logger Logger) SubmitterService {
	return &submitterServiceImpl{
		submitterRepo: submitterRepo,
		logger:        logger,
	}
}

// Create registers a submitter. Emails are unique regardless of case.
func (s *submitterServiceImpl) Create(ctx context.Context, input *CreateSubmitterInput) (*entity.Submitter, error) {
	if input == nil {
		return nil, apperror.Validation(0, "submitter input is required")
	}
	submitter := &entity.Submitter{
		Name:             strings.TrimSpace(input.Name),
		Email:            strings.ToLower(strings.TrimSpace(input.Email)),
		ContractorNumber: strings.TrimSpace(input.ContractorNumber),
		DefaultRateCents: input.DefaultRateCents,
	}
	if err := entity.Validate(submitter); err != nil {
		return nil, apperror.Validation(0, err.Error())
	}

	existing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Email, submitter.Email) {
			return nil, apperror.Validation(0, "a submitter with email "+submitter.Email+" already exists")
		}
	}

	if err := s.submitterRepo.Create(ctx, submitter); err != nil {
		s.logger.Error("Failed to create submitter", "email", submitter.Email, "error", err)
		return nil, apperror.DependencyFailure(0, "failed to create submitter", err)
	}

	s.logger.Info("Submitter registered",
		"submitter_id", submitter.ID,
		"contractor_number", submitter.ContractorNumber,
		"rate", policy.FormatCents(submitter.DefaultRateCents))
	return submitter, nil
}

func (s *submitterServiceImpl) Get(ctx context.Context, id int64) (*entity.Submitter, error) {
	submitter, err := s.submitterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to load submitter", err)
	}
	if submitter == nil {
		return nil, apperror.NotFound("submitter", id)
	}
	return submitter, nil
}

func (s *submitterServiceImpl) List(ctx context.Context) ([]*entity.Submitter, error) {
	submitters, err := s.submitterRepo.List(ctx)
	if err != nil {
		return nil, apperror.DependencyFailure(0, "failed to list submitters", err)
	}
	return submitters, nil
}

// UpdateRate changes the contracted rate used for future submissions and rate checks
func (s *submitterServiceImpl) UpdateRate(ctx context.Context, id int64, rateCents int64) (*entity.Submitter, error) {
	if rateCents <= 0 {
		return nil, apperror.Validation(0, "hourly rate must be positive")
	}

	submitter, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := submitter.DefaultRateCents

	if err := s.submitterRepo.UpdateRate(ctx, id, rateCents); err != nil {
		s.logger.Error("Failed to update hourly rate", "submitter_id", id, "error", err)
		return nil, apperror.DependencyFailure(0, "failed to update hourly rate", err)
	}
	submitter.DefaultRateCents = rateCents

	s.logger.Info("Hourly rate updated",
		"submitter_id", id,
		"previous_rate", policy.FormatCents(previous),
		"new_rate", policy.FormatCents(rateCents))
	return submitter, nil
}
