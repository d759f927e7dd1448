package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// AuditLog is the append-only record of decisions taken on claims
type AuditLog interface {
	Record(ctx context.Context, entry *entity.ApprovalHistory) error
	History(ctx context.Context, claimID int64) ([]*entity.ApprovalHistory, error)
}

type auditLogImpl struct {
	historyRepo port.HistoryRepository
	now         func() time.Time
	logger      Logger
}

// NewAuditLog creates a new AuditLog
func NewAuditLog(historyRepo port.HistoryRepository, logger Logger) AuditLog {
	return &auditLogImpl{
		historyRepo: historyRepo,
		now:         time.Now,
		logger:      logger,
	}
}

// Record stamps and appends one entry. It must run in the caller's transaction.
func (a *auditLogImpl) Record(ctx context.Context, entry *entity.ApprovalHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}
	if err := entity.Validate(entry); err != nil {
		return fmt.Errorf("invalid audit entry: %w", err)
	}
	if err := a.historyRepo.Create(ctx, entry); err != nil {
		a.logger.Error("Failed to record approval history", "claim_id", entry.ClaimID, "action", entry.Action, "error", err)
		return fmt.Errorf("failed to record approval history: %w", err)
	}

	a.logger.Info("Approval history recorded",
		"claim_id", entry.ClaimID,
		"approver_id", entry.ApproverID,
		"role", entry.Role,
		"action", entry.Action,
		"previous_status", entry.PreviousStatus,
		"new_status", entry.NewStatus)
	return nil
}

func (a *auditLogImpl) History(ctx context.Context, claimID int64) ([]*entity.ApprovalHistory, error) {
	entries, err := a.historyRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval history: %w", err)
	}
	return entries, nil
}
