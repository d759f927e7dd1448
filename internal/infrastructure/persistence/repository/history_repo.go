package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository.
// The table rejects UPDATE and DELETE, so the repository only appends and reads.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (
			claim_id, approver_id, role, action, comment,
			previous_status, new_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		history.ClaimID,
		history.ApproverID,
		string(history.Role),
		string(history.Action),
		history.Comment,
		history.PreviousStatus,
		history.NewStatus,
		history.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Int64("claim_id", history.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByClaimID retrieves all history records for a claim in the order they were written
func (r *HistoryRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalHistory, error) {
	query := `
		SELECT id, claim_id, approver_id, role, action, comment,
			previous_status, new_status, created_at
		FROM approval_history
		WHERE claim_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	histories := make([]*entity.ApprovalHistory, 0)
	for rows.Next() {
		var h entity.ApprovalHistory
		var role, action string
		if err := rows.Scan(
			&h.ID,
			&h.ClaimID,
			&h.ApproverID,
			&role,
			&action,
			&h.Comment,
			&h.PreviousStatus,
			&h.NewStatus,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.Role = entity.Role(role)
		h.Action = entity.Action(action)
		histories = append(histories, &h)
	}

	return histories, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
