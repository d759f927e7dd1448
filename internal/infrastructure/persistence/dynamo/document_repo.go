package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// DocumentRepository persists supporting document metadata in DynamoDB
type DocumentRepository struct {
	api    API
	tables Tables
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(api API, tables Tables, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{api: api, tables: tables, logger: logger}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.SupportingDocument) error {
	id, err := nextID(ctx, r.api, r.tables.Counters, "supporting_documents")
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(documentItem{
		ClaimID:    doc.ClaimID,
		ID:         id,
		FileName:   doc.FileName,
		FilePath:   doc.FilePath,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		UploadedAt: formatTime(doc.UploadedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if err := write(ctx, r.api, types.TransactWriteItem{
		Put: &types.Put{TableName: aws.String(r.tables.Documents), Item: av},
	}); err != nil {
		r.logger.Error("Failed to create document", zap.Int64("claim_id", doc.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	doc.ID = id
	return nil
}

func (r *DocumentRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.SupportingDocument, error) {
	paginator := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tables.Documents),
		KeyConditionExpression:    aws.String("#claim_id = :claim_id"),
		ExpressionAttributeNames:  map[string]string{"#claim_id": "claim_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":claim_id": numberValue(claimID)},
	})

	docs := make([]*entity.SupportingDocument, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("Failed to get documents", zap.Int64("claim_id", claimID), zap.Error(err))
			return nil, fmt.Errorf("failed to get documents: %w", err)
		}
		var items []documentItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
		}
		for _, it := range items {
			uploadedAt, _ := parseTime(it.UploadedAt)
			docs = append(docs, &entity.SupportingDocument{
				ID:         it.ID,
				ClaimID:    it.ClaimID,
				FileName:   it.FileName,
				FilePath:   it.FilePath,
				MimeType:   it.MimeType,
				SizeBytes:  it.SizeBytes,
				UploadedAt: uploadedAt,
			})
		}
	}
	return docs, nil
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
