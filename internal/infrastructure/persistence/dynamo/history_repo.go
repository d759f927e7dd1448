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

// HistoryRepository appends approval history under the claim's partition.
// Puts are conditional on the sort key being new, so entries are never overwritten.
type HistoryRepository struct {
	api    API
	tables Tables
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(api API, tables Tables, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{api: api, tables: tables, logger: logger}
}

func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	id, err := nextID(ctx, r.api, r.tables.Counters, "approval_history")
	if err != nil {
		return err
	}

	pending := *history
	pending.ID = id
	av, err := attributevalue.MarshalMap(toHistoryItem(&pending))
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	err = write(ctx, r.api, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(r.tables.History),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#seq)"),
			ExpressionAttributeNames: map[string]string{"#seq": "seq"},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Int64("claim_id", history.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	history.ID = id
	return nil
}

func (r *HistoryRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalHistory, error) {
	paginator := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tables.History),
		KeyConditionExpression:    aws.String("#claim_id = :claim_id"),
		ExpressionAttributeNames:  map[string]string{"#claim_id": "claim_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":claim_id": numberValue(claimID)},
		ScanIndexForward:          aws.Bool(true),
		ConsistentRead:            aws.Bool(true),
	})

	histories := make([]*entity.ApprovalHistory, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("Failed to get history", zap.Int64("claim_id", claimID), zap.Error(err))
			return nil, fmt.Errorf("failed to get history: %w", err)
		}
		var items []historyItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
		for _, it := range items {
			histories = append(histories, fromHistoryItem(it))
		}
	}
	return histories, nil
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
