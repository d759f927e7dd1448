package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
)

// maxTransactItems is the DynamoDB limit for one TransactWriteItems call
const maxTransactItems = 100

type contextKey string

const batchKey contextKey = "dynamo_batch"

// errConditionFailed reports a failed condition that does not guard a version,
// such as an insert finding its key already taken.
var errConditionFailed = errors.New("conditional write failed")

// pendingWrite is one buffered item. versioned marks the optimistic version check.
type pendingWrite struct {
	item      types.TransactWriteItem
	versioned bool
}

type batch struct {
	writes []pendingWrite
}

// TxManager implements port.TransactionManager by buffering writes and
// committing them with a single TransactWriteItems call.
// Reads inside a transaction see committed data only.
type TxManager struct {
	api    API
	logger *zap.Logger
}

// NewTxManager creates a new transaction manager
func NewTxManager(api API, logger *zap.Logger) *TxManager {
	return &TxManager{api: api, logger: logger}
}

// WithTransaction implements port.TransactionManager. Nested calls join the outer batch.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if batchFromContext(ctx) != nil {
		return fn(ctx)
	}

	b := &batch{}
	if err := fn(context.WithValue(ctx, batchKey, b)); err != nil {
		return err
	}
	if len(b.writes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := transact(ctx, m.api, b.writes); err != nil {
		m.logger.Error("Failed to commit transaction", zap.Int("items", len(b.writes)), zap.Error(err))
		return err
	}
	return nil
}

func batchFromContext(ctx context.Context) *batch {
	if b, ok := ctx.Value(batchKey).(*batch); ok {
		return b
	}
	return nil
}

// write joins the caller's batch or commits item on its own
func write(ctx context.Context, api API, item types.TransactWriteItem) error {
	return enqueue(ctx, api, pendingWrite{item: item})
}

// writeVersioned is write for an item whose condition compares the stored version.
// Only its failed condition is reported as port.ErrVersionConflict.
func writeVersioned(ctx context.Context, api API, item types.TransactWriteItem) error {
	return enqueue(ctx, api, pendingWrite{item: item, versioned: true})
}

func enqueue(ctx context.Context, api API, w pendingWrite) error {
	if b := batchFromContext(ctx); b != nil {
		if len(b.writes) == maxTransactItems {
			return fmt.Errorf("transaction exceeds %d writes", maxTransactItems)
		}
		b.writes = append(b.writes, w)
		return nil
	}
	return transact(ctx, api, []pendingWrite{w})
}

func transact(ctx context.Context, api API, writes []pendingWrite) error {
	items := make([]types.TransactWriteItem, len(writes))
	for i, w := range writes {
		items[i] = w.item
	}

	_, err := api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return nil
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		// reasons are positional: reason i belongs to item i
		var codes []string
		var conditionErr error
		for i, r := range tce.CancellationReasons {
			code := aws.ToString(r.Code)
			codes = append(codes, code)
			if code != "ConditionalCheckFailed" {
				continue
			}
			if i < len(writes) && writes[i].versioned {
				return fmt.Errorf("%w: %s", port.ErrVersionConflict, aws.ToString(r.Message))
			}
			if conditionErr == nil {
				conditionErr = fmt.Errorf("%w: item %d: %s", errConditionFailed, i, aws.ToString(r.Message))
			}
		}
		if conditionErr != nil {
			return conditionErr
		}
		return fmt.Errorf("transaction cancelled (%s): %w", strings.Join(codes, ", "), err)
	}
	return fmt.Errorf("failed to write items: %w", err)
}

// Verify interface compliance
var _ port.TransactionManager = (*TxManager)(nil)
