package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/persistence/sqlite"
)

const claimColumns = `
	id, claim_number, submitter_id, submitted_at, status,
	coordinator_id, manager_id, verified_at, rejection_reason,
	total_hours, rate_cents, total_amount_cents, payment_processed, version`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the claim and its line items atomically
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	if err := entity.Validate(claim); err != nil {
		return fmt.Errorf("refusing to store claim: %w", err)
	}

	return r.inTx(ctx, func(exec sqlite.QueryExecutor) error {
		query := `
			INSERT INTO claims (
				claim_number, submitter_id, submitted_at, status,
				coordinator_id, manager_id, verified_at, rejection_reason,
				total_hours, rate_cents, total_amount_cents, payment_processed, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		`
		result, err := exec.ExecContext(ctx, query,
			claim.ClaimNumber,
			claim.SubmitterID,
			claim.SubmittedAt.UTC(),
			claim.Status,
			nullInt64(claim.CoordinatorID),
			nullInt64(claim.ManagerID),
			nullTime(claim.VerifiedAt),
			claim.RejectionReason,
			claim.TotalHours,
			claim.RateCents,
			claim.TotalAmountCents,
			claim.PaymentProcessed,
		)
		if err != nil {
			r.logger.Error("Failed to create claim", zap.String("claim_number", claim.ClaimNumber), zap.Error(err))
			return fmt.Errorf("failed to create claim: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		claim.ID = id
		claim.Version = 1

		itemQuery := `
			INSERT INTO claim_line_items (
				claim_id, position, activity_date, hours, rate_cents, description, amount_cents
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		for i := range claim.LineItems {
			item := &claim.LineItems[i]
			item.ClaimID = id
			result, err := exec.ExecContext(ctx, itemQuery,
				id, i, item.ActivityDate, item.Hours, item.RateCents, item.Description, item.AmountCents,
			)
			if err != nil {
				r.logger.Error("Failed to create line item", zap.Int64("claim_id", id), zap.Error(err))
				return fmt.Errorf("failed to create line item: %w", err)
			}
			if item.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a claim with its line items
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	exec := sqlite.Executor(ctx, r.db)
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	items, err := r.lineItems(ctx, exec, id)
	if err != nil {
		return nil, err
	}
	claim.LineItems = items
	return claim, nil
}

// UpdateStatus performs the version-checked write of the status-related fields and the payment flag
func (r *ClaimRepository) UpdateStatus(ctx context.Context, claim *entity.Claim) error {
	if !claim.Status.IsValid() {
		return fmt.Errorf("refusing to store claim %d: %w: %q", claim.ID, workflow.ErrInvalidState, claim.Status)
	}

	query := `
		UPDATE claims
		SET status = ?, coordinator_id = ?, manager_id = ?, verified_at = ?,
			rejection_reason = ?, payment_processed = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		claim.Status,
		nullInt64(claim.CoordinatorID),
		nullInt64(claim.ManagerID),
		nullTime(claim.VerifiedAt),
		claim.RejectionReason,
		claim.PaymentProcessed,
		time.Now().UTC(),
		claim.ID,
		claim.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		r.logger.Info("Claim version conflict", zap.Int64("id", claim.ID), zap.Int64("expected_version", claim.Version))
		return port.ErrVersionConflict
	}

	claim.Version++
	return nil
}

// ListByStatuses returns claims in any of statuses without line items
func (r *ClaimRepository) ListByStatuses(ctx context.Context, statuses []workflow.State) ([]*entity.Claim, error) {
	if len(statuses) == 0 {
		return []*entity.Claim{}, nil
	}
	placeholders, args := inClause(statuses)
	query := `SELECT ` + claimColumns + ` FROM claims WHERE status IN (` + placeholders + `) ORDER BY submitted_at ASC, id ASC`
	return r.list(ctx, query, args...)
}

// ListBySubmitter returns a submitter's claims without line items
func (r *ClaimRepository) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE submitter_id = ? ORDER BY submitted_at ASC, id ASC`
	return r.list(ctx, query, submitterID)
}

// CountBySubmitterAndStatuses counts a submitter's claims in any of statuses
func (r *ClaimRepository) CountBySubmitterAndStatuses(ctx context.Context, submitterID int64, statuses []workflow.State) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders, args := inClause(statuses)
	query := `SELECT COUNT(*) FROM claims WHERE submitter_id = ? AND status IN (` + placeholders + `)`

	var count int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, append([]interface{}{submitterID}, args...)...).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count claims", zap.Int64("submitter_id", submitterID), zap.Error(err))
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}

// ListByStatusSubmittedBetween returns claims with line items submitted within [from, to)
func (r *ClaimRepository) ListByStatusSubmittedBetween(ctx context.Context, status workflow.State, from, to time.Time) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE status = ? AND submitted_at >= ? AND submitted_at < ?
		ORDER BY submitted_at ASC, id ASC`
	claims, err := r.list(ctx, query, status, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	exec := sqlite.Executor(ctx, r.db)
	for _, c := range claims {
		if c.LineItems, err = r.lineItems(ctx, exec, c.ID); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// TotalsByStatus returns count and summed amount of claims in status
func (r *ClaimRepository) TotalsByStatus(ctx context.Context, status workflow.State) (*port.ClaimTotals, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(total_amount_cents), 0) FROM claims WHERE status = ?`

	var totals port.ClaimTotals
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, status).Scan(&totals.Count, &totals.AmountCents)
	if err != nil {
		r.logger.Error("Failed to total claims", zap.String("status", status.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to total claims: %w", err)
	}
	return &totals, nil
}

func (r *ClaimRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Claim, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := make([]*entity.Claim, 0)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (r *ClaimRepository) lineItems(ctx context.Context, exec sqlite.QueryExecutor, claimID int64) ([]entity.LineItem, error) {
	query := `
		SELECT id, claim_id, activity_date, hours, rate_cents, description, amount_cents
		FROM claim_line_items
		WHERE claim_id = ?
		ORDER BY position ASC
	`
	rows, err := exec.QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get line items", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	items := make([]entity.LineItem, 0)
	for rows.Next() {
		var item entity.LineItem
		if err := rows.Scan(
			&item.ID,
			&item.ClaimID,
			&item.ActivityDate,
			&item.Hours,
			&item.RateCents,
			&item.Description,
			&item.AmountCents,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// inTx joins the caller's transaction or runs fn in a local one
func (r *ClaimRepository) inTx(ctx context.Context, fn func(exec sqlite.QueryExecutor) error) error {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var claim entity.Claim
	var coordinatorID, managerID sql.NullInt64
	var verifiedAt sql.NullTime

	if err := row.Scan(
		&claim.ID,
		&claim.ClaimNumber,
		&claim.SubmitterID,
		&claim.SubmittedAt,
		&claim.Status,
		&coordinatorID,
		&managerID,
		&verifiedAt,
		&claim.RejectionReason,
		&claim.TotalHours,
		&claim.RateCents,
		&claim.TotalAmountCents,
		&claim.PaymentProcessed,
		&claim.Version,
	); err != nil {
		return nil, err
	}

	if coordinatorID.Valid {
		claim.CoordinatorID = &coordinatorID.Int64
	}
	if managerID.Valid {
		claim.ManagerID = &managerID.Int64
	}
	if verifiedAt.Valid {
		claim.VerifiedAt = &verifiedAt.Time
	}
	return &claim, nil
}

func inClause(statuses []workflow.State) (string, []interface{}) {
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", "), args
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
