package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// SubmitterRepository persists submitters in DynamoDB
type SubmitterRepository struct {
	api    API
	tables Tables
	logger *zap.Logger
	now    func() time.Time
}

// NewSubmitterRepository creates a new submitter repository
func NewSubmitterRepository(api API, tables Tables, logger *zap.Logger) *SubmitterRepository {
	return &SubmitterRepository{api: api, tables: tables, logger: logger, now: time.Now}
}

func (r *SubmitterRepository) Create(ctx context.Context, submitter *entity.Submitter) error {
	if err := entity.Validate(submitter); err != nil {
		return fmt.Errorf("refusing to store submitter: %w", err)
	}

	id, err := nextID(ctx, r.api, r.tables.Counters, "submitters")
	if err != nil {
		return err
	}

	now := r.now().UTC()
	pending := *submitter
	pending.ID = id
	pending.CreatedAt = now
	pending.UpdatedAt = now

	av, err := attributevalue.MarshalMap(toSubmitterItem(&pending))
	if err != nil {
		return fmt.Errorf("failed to marshal submitter: %w", err)
	}

	err = write(ctx, r.api, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(r.tables.Submitters),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create submitter", zap.String("email", submitter.Email), zap.Error(err))
		return fmt.Errorf("failed to create submitter: %w", err)
	}

	*submitter = pending
	return nil
}

func (r *SubmitterRepository) GetByID(ctx context.Context, id int64) (*entity.Submitter, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Submitters),
		Key:            numberKey("id", id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("Failed to get submitter by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get submitter: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it submitterItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submitter: %w", err)
	}
	return fromSubmitterItem(it), nil
}

// List scans the submitters table; the roster is small
func (r *SubmitterRepository) List(ctx context.Context) ([]*entity.Submitter, error) {
	paginator := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName: aws.String(r.tables.Submitters),
	})

	submitters := make([]*entity.Submitter, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("Failed to list submitters", zap.Error(err))
			return nil, fmt.Errorf("failed to list submitters: %w", err)
		}
		var items []submitterItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submitters: %w", err)
		}
		for _, it := range items {
			submitters = append(submitters, fromSubmitterItem(it))
		}
	}

	sort.Slice(submitters, func(i, j int) bool {
		if submitters[i].Name != submitters[j].Name {
			return submitters[i].Name < submitters[j].Name
		}
		return submitters[i].ID < submitters[j].ID
	})
	return submitters, nil
}

func (r *SubmitterRepository) UpdateRate(ctx context.Context, id int64, rateCents int64) error {
	_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tables.Submitters),
		Key:                 numberKey("id", id),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		UpdateExpression:    aws.String("SET #rate = :rate, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#id":         "id",
			"#rate":       "default_rate_cents",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rate":       numberValue(rateCents),
			":updated_at": &types.AttributeValueMemberS{Value: formatTime(r.now())},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return fmt.Errorf("submitter not found: %d", id)
		}
		r.logger.Error("Failed to update submitter rate", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update submitter rate: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.SubmitterRepository = (*SubmitterRepository)(nil)
