// Package dynamo stores claims, submitters, history and documents in DynamoDB.
//
// Table layout (all keys are attribute names used below):
//   - claims: PK id (N); GSI status-submitted_at-index (status S, submitted_at S);
//     GSI submitter_id-submitted_at-index (submitter_id N, submitted_at S)
//   - submitters: PK id (N)
//   - approval_history: PK claim_id (N), SK seq (S)
//   - supporting_documents: PK claim_id (N), SK id (N)
//   - counters: PK name (S)
package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	statusIndex    = "status-submitted_at-index"
	submitterIndex = "submitter_id-submitted_at-index"

	// fixed width so that lexical order equals chronological order
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// API is the subset of *dynamodb.Client used by the repositories
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Config holds connection settings.
// Local DynamoDB does not validate credentials, but the SDK requires them.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	TablePrefix     string
}

// Tables names every table the store uses
type Tables struct {
	Claims     string
	Submitters string
	History    string
	Documents  string
	Counters   string
}

// TablesWithPrefix derives table names from a common prefix
func TablesWithPrefix(prefix string) Tables {
	return Tables{
		Claims:     prefix + "claims",
		Submitters: prefix + "submitters",
		History:    prefix + "approval_history",
		Documents:  prefix + "supporting_documents",
		Counters:   prefix + "counters",
	}
}

// NewClient creates a DynamoDB client from cfg
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// nextID allocates the next value of a named counter
func nextID(ctx context.Context, api API, table, name string) (int64, error) {
	out, err := api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression:         aws.String("ADD #value :one"),
		ExpressionAttributeNames: map[string]string{"#value": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}

	n, ok := out.Attributes["value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter %s returned no value", name)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func numberKey(name string, v int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
