package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// ClaimRepository persists claims, with their line items embedded, in DynamoDB
type ClaimRepository struct {
	api    API
	tables Tables
	logger *zap.Logger
	now    func() time.Time
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(api API, tables Tables, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		api:    api,
		tables: tables,
		logger: logger,
		now:    time.Now,
	}
}

// Create allocates an ID and writes the claim at version 1
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	if err := entity.Validate(claim); err != nil {
		return fmt.Errorf("refusing to store claim: %w", err)
	}

	id, err := nextID(ctx, r.api, r.tables.Counters, "claims")
	if err != nil {
		r.logger.Error("Failed to allocate claim ID", zap.Error(err))
		return err
	}

	pending := *claim
	pending.ID = id
	pending.Version = 1
	it := toClaimItem(&pending)
	it.UpdatedAt = formatTime(r.now())

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}

	err = write(ctx, r.api, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(r.tables.Claims),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("claim_number", claim.ClaimNumber), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	claim.ID = id
	claim.Version = 1
	for i := range claim.LineItems {
		claim.LineItems[i].ID = int64(i + 1)
		claim.LineItems[i].ClaimID = id
	}
	return nil
}

// GetByID reads the claim with a consistent read
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Claims),
		Key:            numberKey("id", id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it claimItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim: %w", err)
	}
	return fromClaimItem(it)
}

// UpdateStatus writes the status-related attributes and the payment flag on condition that version is unchanged
func (r *ClaimRepository) UpdateStatus(ctx context.Context, claim *entity.Claim) error {
	if !claim.Status.IsValid() {
		return fmt.Errorf("refusing to store claim %d: %w: %q", claim.ID, workflow.ErrInvalidState, claim.Status)
	}

	u := newUpdate()
	u.set("status", &types.AttributeValueMemberS{Value: claim.Status.String()})
	u.set("rejection_reason", &types.AttributeValueMemberS{Value: claim.RejectionReason})
	u.set("payment_processed", &types.AttributeValueMemberBOOL{Value: claim.PaymentProcessed})
	u.set("updated_at", &types.AttributeValueMemberS{Value: formatTime(r.now())})
	u.set("version", numberValue(claim.Version+1))
	u.setOrRemove("coordinator_id", optionalNumber(claim.CoordinatorID))
	u.setOrRemove("manager_id", optionalNumber(claim.ManagerID))
	if claim.VerifiedAt != nil {
		u.set("verified_at", &types.AttributeValueMemberS{Value: formatTime(*claim.VerifiedAt)})
	} else {
		u.setOrRemove("verified_at", nil)
	}
	u.values[":expected"] = numberValue(claim.Version)

	err := writeVersioned(ctx, r.api, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(r.tables.Claims),
			Key:                       numberKey("id", claim.ID),
			UpdateExpression:          aws.String(u.expression()),
			ConditionExpression:       aws.String("#version = :expected"),
			ExpressionAttributeNames:  u.names,
			ExpressionAttributeValues: u.values,
		},
	})
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.Int64("id", claim.ID), zap.Error(err))
		return err
	}

	claim.Version++
	return nil
}

// ListByStatuses queries the status index once per status and merges by submission time
func (r *ClaimRepository) ListByStatuses(ctx context.Context, statuses []workflow.State) ([]*entity.Claim, error) {
	claims := make([]*entity.Claim, 0)
	for _, status := range statuses {
		found, err := r.query(ctx, &dynamodb.QueryInput{
			TableName:                aws.String(r.tables.Claims),
			IndexName:                aws.String(statusIndex),
			KeyConditionExpression:   aws.String("#status = :status"),
			ExpressionAttributeNames: map[string]string{"#status": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: status.String()},
			},
		})
		if err != nil {
			return nil, err
		}
		claims = append(claims, found...)
	}
	sortBySubmission(claims)
	return claims, nil
}

// ListBySubmitter returns a submitter's claims, oldest first
func (r *ClaimRepository) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tables.Claims),
		IndexName:                aws.String(submitterIndex),
		KeyConditionExpression:   aws.String("#submitter_id = :submitter_id"),
		ExpressionAttributeNames: map[string]string{"#submitter_id": "submitter_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":submitter_id": numberValue(submitterID),
		},
	})
}

// CountBySubmitterAndStatuses counts on the submitter index with a status filter
func (r *ClaimRepository) CountBySubmitterAndStatuses(ctx context.Context, submitterID int64, statuses []workflow.State) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	values := map[string]types.AttributeValue{":submitter_id": numberValue(submitterID)}
	placeholders := make([]string, len(statuses))
	for i, s := range statuses {
		key := ":s" + strconv.Itoa(i)
		placeholders[i] = key
		values[key] = &types.AttributeValueMemberS{Value: s.String()}
	}

	paginator := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Claims),
		IndexName:              aws.String(submitterIndex),
		KeyConditionExpression: aws.String("#submitter_id = :submitter_id"),
		FilterExpression:       aws.String("#status IN (" + strings.Join(placeholders, ", ") + ")"),
		ExpressionAttributeNames: map[string]string{
			"#submitter_id": "submitter_id",
			"#status":       "status",
		},
		ExpressionAttributeValues: values,
		Select:                    types.SelectCount,
	})

	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("Failed to count claims", zap.Int64("submitter_id", submitterID), zap.Error(err))
			return 0, fmt.Errorf("failed to count claims: %w", err)
		}
		count += int(page.Count)
	}
	return count, nil
}

// ListByStatusSubmittedBetween returns claims in status submitted within [from, to)
func (r *ClaimRepository) ListByStatusSubmittedBetween(ctx context.Context, status workflow.State, from, to time.Time) ([]*entity.Claim, error) {
	if !from.Before(to) {
		return []*entity.Claim{}, nil
	}
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Claims),
		IndexName:              aws.String(statusIndex),
		KeyConditionExpression: aws.String("#status = :status AND #submitted_at BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#status":       "status",
			"#submitted_at": "submitted_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status.String()},
			":from":   &types.AttributeValueMemberS{Value: formatTime(from)},
			":to":     &types.AttributeValueMemberS{Value: formatTime(to.Add(-time.Nanosecond))},
		},
	})
}

// TotalsByStatus sums total_amount_cents over the status index
func (r *ClaimRepository) TotalsByStatus(ctx context.Context, status workflow.State) (*port.ClaimTotals, error) {
	claims, err := r.ListByStatuses(ctx, []workflow.State{status})
	if err != nil {
		return nil, err
	}

	totals := &port.ClaimTotals{Count: len(claims)}
	for _, c := range claims {
		totals.AmountCents += c.TotalAmountCents
	}
	return totals, nil
}

func (r *ClaimRepository) query(ctx context.Context, input *dynamodb.QueryInput) ([]*entity.Claim, error) {
	paginator := dynamodb.NewQueryPaginator(r.api, input)

	claims := make([]*entity.Claim, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("Failed to query claims", zap.String("index", aws.ToString(input.IndexName)), zap.Error(err))
			return nil, fmt.Errorf("failed to query claims: %w", err)
		}

		var items []claimItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal claims: %w", err)
		}
		for _, it := range items {
			c, err := fromClaimItem(it)
			if err != nil {
				return nil, err
			}
			claims = append(claims, c)
		}
	}
	return claims, nil
}

func sortBySubmission(claims []*entity.Claim) {
	sort.SliceStable(claims, func(i, j int) bool {
		if !claims[i].SubmittedAt.Equal(claims[j].SubmittedAt) {
			return claims[i].SubmittedAt.Before(claims[j].SubmittedAt)
		}
		return claims[i].ID < claims[j].ID
	})
}

// update accumulates a SET/REMOVE expression with placeholder names
type update struct {
	sets    []string
	removes []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newUpdate() *update {
	return &update{
		names:  map[string]string{"#version": "version"},
		values: map[string]types.AttributeValue{},
	}
}

func (u *update) set(attr string, v types.AttributeValue) {
	u.names["#"+attr] = attr
	u.values[":"+attr] = v
	u.sets = append(u.sets, "#"+attr+" = :"+attr)
}

func (u *update) setOrRemove(attr string, v types.AttributeValue) {
	if v == nil {
		u.names["#"+attr] = attr
		u.removes = append(u.removes, "#"+attr)
		return
	}
	u.set(attr, v)
}

func (u *update) expression() string {
	expr := "SET " + strings.Join(u.sets, ", ")
	if len(u.removes) > 0 {
		expr += " REMOVE " + strings.Join(u.removes, ", ")
	}
	return expr
}

func numberValue(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func optionalNumber(v *int64) types.AttributeValue {
	if v == nil {
		return nil
	}
	return numberValue(*v)
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
