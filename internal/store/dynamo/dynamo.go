// Package dynamo implements store.Store on Amazon DynamoDB.
//
// One physical table holds every logical partition. The table's key schema is
// (partition S HASH, tx N RANGE); all reads use ConsistentRead and all writes
// go through TransactWriteItems so multi-row commits are all-or-nothing.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

// API is the DynamoDB client subset the store uses. *dynamodb.Client
// satisfies it; tests substitute a stub.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store adapts a DynamoDB table to store.Store. Safe for concurrent use; the
// underlying client carries all shared state.
type Store struct {
	api   API
	table string
}

var _ store.Store = (*Store)(nil)

// New wraps the given client and table name.
func New(api API, table string) *Store {
	return &Store{api: api, table: table}
}

// Table reports the backing table name.
func (s *Store) Table() string { return s.table }

func (s *Store) Get(ctx context.Context, key store.Key) (store.Item, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            encodeKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, mapError(err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	row, err := decodeRow(out.Item)
	if err != nil {
		return nil, false, err
	}
	return row.Attrs, true, nil
}

func (s *Store) Commit(ctx context.Context, puts []store.Put) error {
	items := make([]types.TransactWriteItem, 0, len(puts))
	for _, p := range puts {
		put := &types.Put{
			TableName: aws.String(s.table),
			Item:      encodeItem(p.Key, p.Attrs),
		}
		if p.Cond != nil {
			expr, names, values := condExpr(p.Cond)
			put.ConditionExpression = aws.String(expr)
			put.ExpressionAttributeNames = names
			put.ExpressionAttributeValues = values
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}
	_, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q store.Query) (store.Page, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#p = :p AND #t > :after"),
		ExpressionAttributeNames: map[string]string{
			"#p": store.AttrPartition,
			"#t": store.AttrSort,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":     &types.AttributeValueMemberS{Value: q.Partition},
			":after": &types.AttributeValueMemberN{Value: strconv.FormatInt(q.After, 10)},
		},
		ConsistentRead:   aws.Bool(true),
		ScanIndexForward: aws.Bool(!q.Descending),
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(q.Limit)
	}
	if q.StartKey != nil {
		in.ExclusiveStartKey = encodeKey(*q.StartKey)
	}
	out, err := s.api.Query(ctx, in)
	if err != nil {
		return store.Page{}, mapError(err)
	}
	page := store.Page{Rows: make([]store.Row, 0, len(out.Items))}
	for _, item := range out.Items {
		row, err := decodeRow(item)
		if err != nil {
			return store.Page{}, err
		}
		page.Rows = append(page.Rows, row)
	}
	if len(out.LastEvaluatedKey) > 0 {
		key, err := decodeKey(out.LastEvaluatedKey)
		if err != nil {
			return store.Page{}, err
		}
		page.Next = &key
	}
	return page, nil
}

func (s *Store) Describe(ctx context.Context) (store.TableInfo, error) {
	out, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return store.TableInfo{}, mapError(err)
	}
	t := out.Table
	return store.TableInfo{
		Name:      aws.ToString(t.TableName),
		State:     string(t.TableStatus),
		ItemCount: aws.ToInt64(t.ItemCount),
		SizeBytes: aws.ToInt64(t.TableSizeBytes),
	}, nil
}

// mapError translates DynamoDB failures to the shared store sentinels. A
// cancelled transaction counts as a condition failure whenever any item was
// rejected by its precondition or by a conflicting concurrent transaction;
// both cases mean nothing was written and the caller should re-read and
// retry.
func mapError(err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return fmt.Errorf("%w: %s", store.ErrTableNotFound, aws.ToString(rnf.Message))
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			switch aws.ToString(reason.Code) {
			case "ConditionalCheckFailed", "TransactionConflict":
				return fmt.Errorf("%w: %s", store.ErrConditionFailed, aws.ToString(reason.Code))
			case "ResourceNotFound":
				return fmt.Errorf("%w: transact item table missing", store.ErrTableNotFound)
			}
		}
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s", store.ErrConditionFailed, aws.ToString(ccf.Message))
	}
	return err
}
