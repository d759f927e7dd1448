package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/persistence/sqlite"
)

// SubmitterRepository implements port.SubmitterRepository
type SubmitterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmitterRepository creates a new submitter repository
func NewSubmitterRepository(db *sql.DB, logger *zap.Logger) port.SubmitterRepository {
	return &SubmitterRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new submitter
func (r *SubmitterRepository) Create(ctx context.Context, submitter *entity.Submitter) error {
	if err := entity.Validate(submitter); err != nil {
		return fmt.Errorf("refusing to store submitter: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO submitters (name, email, contractor_number, default_rate_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		submitter.Name,
		submitter.Email,
		submitter.ContractorNumber,
		submitter.DefaultRateCents,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create submitter", zap.String("email", submitter.Email), zap.Error(err))
		return fmt.Errorf("failed to create submitter: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	submitter.ID = id
	submitter.CreatedAt = now
	submitter.UpdatedAt = now
	return nil
}

// GetByID retrieves a submitter by ID
func (r *SubmitterRepository) GetByID(ctx context.Context, id int64) (*entity.Submitter, error) {
	query := `
		SELECT id, name, email, contractor_number, default_rate_cents, created_at, updated_at
		FROM submitters
		WHERE id = ?
	`
	var s entity.Submitter
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.ContractorNumber,
		&s.DefaultRateCents,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get submitter by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get submitter: %w", err)
	}
	return &s, nil
}

// List returns all submitters ordered by name
func (r *SubmitterRepository) List(ctx context.Context) ([]*entity.Submitter, error) {
	query := `
		SELECT id, name, email, contractor_number, default_rate_cents, created_at, updated_at
		FROM submitters
		ORDER BY name ASC, id ASC
	`
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list submitters", zap.Error(err))
		return nil, fmt.Errorf("failed to list submitters: %w", err)
	}
	defer rows.Close()

	submitters := make([]*entity.Submitter, 0)
	for rows.Next() {
		var s entity.Submitter
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Email,
			&s.ContractorNumber,
			&s.DefaultRateCents,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submitter: %w", err)
		}
		submitters = append(submitters, &s)
	}
	return submitters, rows.Err()
}

// UpdateRate changes a submitter's contracted hourly rate
func (r *SubmitterRepository) UpdateRate(ctx context.Context, id int64, rateCents int64) error {
	query := `UPDATE submitters SET default_rate_cents = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, rateCents, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update submitter rate", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update submitter rate: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("submitter not found: %d", id)
	}
	return nil
}

// Verify interface compliance
var _ port.SubmitterRepository = (*SubmitterRepository)(nil)
