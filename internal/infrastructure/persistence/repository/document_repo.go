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

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new supporting document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores document metadata
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.SupportingDocument) error {
	query := `
		INSERT INTO supporting_documents (claim_id, file_name, file_path, mime_type, size_bytes, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		doc.ClaimID,
		doc.FileName,
		doc.FilePath,
		doc.MimeType,
		doc.SizeBytes,
		doc.UploadedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.Int64("claim_id", doc.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	return nil
}

// GetByClaimID retrieves all documents attached to a claim
func (r *DocumentRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.SupportingDocument, error) {
	query := `
		SELECT id, claim_id, file_name, file_path, mime_type, size_bytes, uploaded_at
		FROM supporting_documents
		WHERE claim_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get documents", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*entity.SupportingDocument, 0)
	for rows.Next() {
		var d entity.SupportingDocument
		if err := rows.Scan(
			&d.ID,
			&d.ClaimID,
			&d.FileName,
			&d.FilePath,
			&d.MimeType,
			&d.SizeBytes,
			&d.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &d)
	}

	return docs, rows.Err()
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
