/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/datastore"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/registry"
	"github.com/suparena/blogstore/resilience"
	"github.com/suparena/blogstore/storagemodels"
)

// Key attribute names. The client writes both on every item, overriding any
// same-named field of the record.
const (
	PartitionKeyAttribute = "PartitionKey"
	RowKeyAttribute       = "RowKey"
)

// Config holds optional TableClient settings.
type Config struct {
	Logger          *zap.Logger
	CreateTimeout   time.Duration // Wait for a new table to become ACTIVE (default: 2m)
	DefaultPageSize int32         // Page size when a caller passes <= 0 (default: 100)
}

// TableClient implements datastore.TableStore[T] on a single DynamoDB table
// with a PartitionKey (HASH) / RowKey (RANGE) string key schema.
type TableClient[T any] struct {
	api        API
	tableName  string
	exec       *resilience.Executor
	logger     *zap.Logger
	pageSize   int32
	recordName string
}

// NewTableClient checks that T is a table record, creates the table if it
// does not exist, and waits for it to become active.
func NewTableClient[T any](ctx context.Context, api API, tableName string, exec *resilience.Executor, cfg Config) (*TableClient[T], error) {
	recordName := registry.RecordTypeName[T]()
	if !datastore.SupportsTableRecord[T]() {
		return nil, errors.NewTypeMismatchError(tableName, recordName, "datastore.TableRecord")
	}
	if tableName == "" {
		return nil, errors.NewConfigurationError("", "table name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = 2 * time.Minute
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 100
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultRetryConfig(), resilience.DefaultBreakerConfig(), cfg.Logger)
	}

	c := &TableClient[T]{
		api:        api,
		tableName:  tableName,
		exec:       exec,
		logger:     cfg.Logger.Named("table").With(zap.String("table", tableName), zap.String("record", recordName)),
		pageSize:   cfg.DefaultPageSize,
		recordName: recordName,
	}
	if err := c.ensureTable(ctx, cfg.CreateTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the table name.
func (c *TableClient[T]) Name() string {
	return c.tableName
}

func (c *TableClient[T]) opName(method string) string {
	return "table:" + c.tableName + ":" + method
}

func (c *TableClient[T]) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	if errors.IsCallerError(err) {
		c.logger.Warn("table operation rejected", fields...)
		return
	}
	c.logger.Error("table operation failed", fields...)
}

func (c *TableClient[T]) ensureTable(ctx context.Context, timeout time.Duration) error {
	input := &dynamodb.DescribeTableInput{TableName: aws.String(c.tableName)}
	exists, err := resilience.Execute(ctx, c.exec, c.opName("DescribeTable"), func(ctx context.Context) (bool, error) {
		_, err := c.api.DescribeTable(ctx, input)
		if err != nil {
			var rnf *types.ResourceNotFoundException
			if stderrors.As(err, &rnf) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		c.logFailure("DescribeTable", err)
		return fmt.Errorf("failed to describe table %s: %w", c.tableName, err)
	}
	if exists {
		return nil
	}

	c.logger.Info("creating table")
	err = resilience.Do(ctx, c.exec, c.opName("CreateTable"), func(ctx context.Context) error {
		_, err := c.api.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(c.tableName),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(PartitionKeyAttribute), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String(RowKeyAttribute), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(PartitionKeyAttribute), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(RowKeyAttribute), KeyType: types.KeyTypeRange},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		var inUse *types.ResourceInUseException
		if stderrors.As(err, &inUse) {
			// Created by another process between describe and create.
			return nil
		}
		return err
	})
	if err != nil {
		c.logFailure("CreateTable", err)
		return fmt.Errorf("failed to create table %s: %w", c.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(c.api, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = time.Second
		o.MaxDelay = 10 * time.Second
	})
	if err := waiter.Wait(ctx, input, timeout); err != nil {
		c.logFailure("CreateTable", err)
		return fmt.Errorf("table %s did not become active: %w", c.tableName, err)
	}
	c.logger.Info("table created")
	return nil
}

func tableKey(partitionKey, rowKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		PartitionKeyAttribute: &types.AttributeValueMemberS{Value: partitionKey},
		RowKeyAttribute:       &types.AttributeValueMemberS{Value: rowKey},
	}
}

func keyString(partitionKey, rowKey string) string {
	return partitionKey + "/" + rowKey
}

func validateKey(partitionKey, rowKey string) error {
	if partitionKey == "" {
		return errors.NewValidationError(PartitionKeyAttribute, "partition key is required")
	}
	if rowKey == "" {
		return errors.NewValidationError(RowKeyAttribute, "row key is required")
	}
	return nil
}

// isNotFoundStatus reports a 404-class transport response.
func isNotFoundStatus(err error) bool {
	var status interface{ HTTPStatusCode() int }
	return stderrors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}

// encode validates record and marshals it with its key attributes.
func (c *TableClient[T]) encode(record T) (map[string]types.AttributeValue, string, string, error) {
	rec, ok := datastore.AsTableRecord(&record)
	if !ok {
		return nil, "", "", errors.NewValidationError("record", "record is required")
	}
	pk, rk := rec.GetPartitionKey(), rec.GetRowKey()
	if err := validateKey(pk, rk); err != nil {
		return nil, "", "", err
	}
	if v, ok := datastore.AsValidator(&record); ok {
		if err := v.Validate(); err != nil {
			return nil, "", "", errors.NewValidationError("", err.Error())
		}
	}

	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, "", "", errors.NewSerializationError(c.recordName, err)
	}
	av[PartitionKeyAttribute] = &types.AttributeValueMemberS{Value: pk}
	av[RowKeyAttribute] = &types.AttributeValueMemberS{Value: rk}
	return av, pk, rk, nil
}

func (c *TableClient[T]) decode(item map[string]types.AttributeValue) (*T, error) {
	result := new(T)
	if err := attributevalue.UnmarshalMap(item, result); err != nil {
		return nil, errors.NewSerializationError(c.recordName, err)
	}
	return result, nil
}

// GetEntity returns the record at (partitionKey, rowKey), or nil if absent.
func (c *TableClient[T]) GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	if err := validateKey(partitionKey, rowKey); err != nil {
		return nil, err
	}

	item, err := resilience.Execute(ctx, c.exec, c.opName("GetEntity"), func(ctx context.Context) (map[string]types.AttributeValue, error) {
		out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(c.tableName),
			Key:            tableKey(partitionKey, rowKey),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			if isNotFoundStatus(err) {
				return nil, nil
			}
			return nil, err
		}
		return out.Item, nil
	})
	if err != nil {
		c.logFailure("GetEntity", err, zap.String("key", keyString(partitionKey, rowKey)))
		return nil, fmt.Errorf("failed to get %s %s: %w", c.recordName, keyString(partitionKey, rowKey), err)
	}
	if item == nil {
		return nil, nil
	}
	return c.decode(item)
}

// AddEntity inserts record. An existing record with the same key is a
// conflict; nothing is overwritten.
func (c *TableClient[T]) AddEntity(ctx context.Context, record T) error {
	item, pk, rk, err := c.encode(record)
	if err != nil {
		return err
	}
	return c.put(ctx, "AddEntity", item, pk, rk, expression.AttributeNotExists(expression.Name(PartitionKeyAttribute)))
}

// UpdateEntity replaces an existing record. The write is unconditional apart
// from the existence check: concurrent updates are last-write-wins.
func (c *TableClient[T]) UpdateEntity(ctx context.Context, record T) error {
	item, pk, rk, err := c.encode(record)
	if err != nil {
		return err
	}
	return c.put(ctx, "UpdateEntity", item, pk, rk, expression.AttributeExists(expression.Name(PartitionKeyAttribute)))
}

func (c *TableClient[T]) put(ctx context.Context, method string, item map[string]types.AttributeValue, pk, rk string, cond expression.ConditionBuilder) error {
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	err = resilience.Do(ctx, c.exec, c.opName(method), func(ctx context.Context) error {
		_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(c.tableName),
			Item:                      item,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			if method == "AddEntity" {
				return errors.NewAlreadyExistsError(c.recordName, keyString(pk, rk))
			}
			return errors.NewNotFoundError(c.recordName, keyString(pk, rk))
		}
		return err
	})
	if err != nil {
		c.logFailure(method, err, zap.String("key", keyString(pk, rk)))
		return fmt.Errorf("failed to write %s %s: %w", c.recordName, keyString(pk, rk), err)
	}
	return nil
}

// DeleteEntity removes the record at (partitionKey, rowKey). Deleting an
// absent record succeeds.
func (c *TableClient[T]) DeleteEntity(ctx context.Context, partitionKey, rowKey string) error {
	if err := validateKey(partitionKey, rowKey); err != nil {
		return err
	}

	err := resilience.Do(ctx, c.exec, c.opName("DeleteEntity"), func(ctx context.Context) error {
		_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(c.tableName),
			Key:       tableKey(partitionKey, rowKey),
		})
		if err != nil && isNotFoundStatus(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logFailure("DeleteEntity", err, zap.String("key", keyString(partitionKey, rowKey)))
		return fmt.Errorf("failed to delete %s %s: %w", c.recordName, keyString(partitionKey, rowKey), err)
	}
	return nil
}

func (c *TableClient[T]) scanInput(filter *storagemodels.Filter) *dynamodb.ScanInput {
	input := &dynamodb.ScanInput{TableName: aws.String(c.tableName)}
	if filter != nil && filter.Expression != "" {
		input.FilterExpression = aws.String(filter.Expression)
		input.ExpressionAttributeNames = filter.Names
		input.ExpressionAttributeValues = filter.Values
	}
	return input
}

// GetAll scans the whole table, page by page, and returns every record that
// matches filter in store order.
func (c *TableClient[T]) GetAll(ctx context.Context, filter *storagemodels.Filter) ([]T, error) {
	items := make([]T, 0)
	for res := range c.Stream(ctx, filter, storagemodels.WithStreamPageSize(c.pageSize)) {
		if res.Error != nil {
			return nil, res.Error
		}
		items = append(items, res.Item)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetPagedResults returns up to pageSize matching records starting after
// continuationToken, plus a token when more matching records remain. Pages
// are filled across scan calls, so a filter never yields an empty page while
// records remain.
func (c *TableClient[T]) GetPagedResults(ctx context.Context, pageSize int32, continuationToken string, filter *storagemodels.Filter) (*storagemodels.PagedResult[T], error) {
	return c.collectPage(ctx, "GetPagedResults", pageSize, continuationToken, func(ctx context.Context, limit int32, startKey map[string]types.AttributeValue) (pageRead, error) {
		input := c.scanInput(filter)
		input.Limit = aws.Int32(limit)
		input.ExclusiveStartKey = startKey
		out, err := c.api.Scan(ctx, input)
		if err != nil {
			return pageRead{}, err
		}
		return pageRead{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	})
}

// pageRead is one Limit-bounded read of the table.
type pageRead struct {
	items   []map[string]types.AttributeValue
	lastKey map[string]types.AttributeValue
}

type pageReader func(ctx context.Context, limit int32, startKey map[string]types.AttributeValue) (pageRead, error)

// collectPage fills a page of up to pageSize records from read. DynamoDB
// returns a LastEvaluatedKey whenever Limit is reached, even at the end of
// the data, so a full page reads ahead until it sees one more match before
// handing out a token.
func (c *TableClient[T]) collectPage(ctx context.Context, method string, pageSize int32, continuationToken string, read pageReader) (*storagemodels.PagedResult[T], error) {
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	startKey, err := decodeToken(continuationToken)
	if err != nil {
		return nil, err
	}

	fetch := func(limit int32, from map[string]types.AttributeValue) (pageRead, error) {
		out, err := resilience.Execute(ctx, c.exec, c.opName(method), func(ctx context.Context) (pageRead, error) {
			return read(ctx, limit, from)
		})
		if err != nil {
			c.logFailure(method, err)
			return pageRead{}, fmt.Errorf("failed to read %s: %w", c.tableName, err)
		}
		return out, nil
	}

	items := make([]T, 0, pageSize)
	for {
		out, err := fetch(pageSize-int32(len(items)), startKey)
		if err != nil {
			return nil, err
		}
		for _, item := range out.items {
			v, err := c.decode(item)
			if err != nil {
				c.logFailure(method, err)
				return nil, err
			}
			items = append(items, *v)
		}

		startKey = out.lastKey
		if len(startKey) == 0 || int32(len(items)) >= pageSize {
			break
		}
	}

	more := false
	for next := startKey; len(next) > 0 && !more; {
		out, err := fetch(pageSize, next)
		if err != nil {
			return nil, err
		}
		more = len(out.items) > 0
		next = out.lastKey
	}
	if !more {
		startKey = nil
	}

	token, err := encodeToken(startKey)
	if err != nil {
		return nil, err
	}
	return &storagemodels.PagedResult[T]{Items: items, ContinuationToken: token}, nil
}
