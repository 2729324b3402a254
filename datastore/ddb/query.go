/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/resilience"
	"github.com/suparena/blogstore/storagemodels"
)

// Placeholders of the partition key condition. Filters built with the
// expression package use numbered placeholders and never collide.
const (
	partitionName  = "#partition"
	partitionValue = ":partition"
)

// queryInput builds a Query on a single partition. filter, when set, is
// applied to the partition's records as a FilterExpression.
func (c *TableClient[T]) queryInput(partitionKey string, filter *storagemodels.Filter) (*dynamodb.QueryInput, error) {
	if partitionKey == "" {
		return nil, errors.NewValidationError(PartitionKeyAttribute, "partition key is required")
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		KeyConditionExpression:    aws.String(partitionName + " = " + partitionValue),
		ExpressionAttributeNames:  map[string]string{partitionName: PartitionKeyAttribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{partitionValue: &types.AttributeValueMemberS{Value: partitionKey}},
	}
	if filter == nil || filter.Expression == "" {
		return input, nil
	}

	for k, v := range filter.Names {
		if _, taken := input.ExpressionAttributeNames[k]; taken {
			return nil, errors.NewValidationError("filter", fmt.Sprintf("placeholder %s is reserved", k))
		}
		input.ExpressionAttributeNames[k] = v
	}
	for k, v := range filter.Values {
		if _, taken := input.ExpressionAttributeValues[k]; taken {
			return nil, errors.NewValidationError("filter", fmt.Sprintf("placeholder %s is reserved", k))
		}
		input.ExpressionAttributeValues[k] = v
	}
	input.FilterExpression = aws.String(filter.Expression)
	return input, nil
}

// QueryPartition returns every record in partitionKey that matches filter,
// in RowKey order. Only the partition is read.
func (c *TableClient[T]) QueryPartition(ctx context.Context, partitionKey string, filter *storagemodels.Filter) ([]T, error) {
	input, err := c.queryInput(partitionKey, filter)
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewQueryPaginator(c.api, input, func(o *dynamodb.QueryPaginatorOptions) {
		o.Limit = c.pageSize
	})

	items := make([]T, 0)
	for paginator.HasMorePages() {
		// NextPage only advances the paginator on success, so it is safe to retry.
		out, err := resilience.Execute(ctx, c.exec, c.opName("Query"), func(ctx context.Context) (*dynamodb.QueryOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			c.logFailure("Query", err, zap.String("partition", partitionKey))
			return nil, fmt.Errorf("failed to query %s partition %s: %w", c.tableName, partitionKey, err)
		}
		for _, item := range out.Items {
			v, err := c.decode(item)
			if err != nil {
				c.logFailure("Query", err, zap.String("partition", partitionKey))
				return nil, err
			}
			items = append(items, *v)
		}
	}
	return items, nil
}

// GetPartitionPage is GetPagedResults restricted to one partition. Its
// tokens are only valid for the same partition.
func (c *TableClient[T]) GetPartitionPage(ctx context.Context, partitionKey string, pageSize int32, continuationToken string, filter *storagemodels.Filter) (*storagemodels.PagedResult[T], error) {
	base, err := c.queryInput(partitionKey, filter)
	if err != nil {
		return nil, err
	}
	return c.collectPage(ctx, "GetPartitionPage", pageSize, continuationToken, func(ctx context.Context, limit int32, startKey map[string]types.AttributeValue) (pageRead, error) {
		input := *base
		input.Limit = aws.Int32(limit)
		input.ExclusiveStartKey = startKey
		out, err := c.api.Query(ctx, &input)
		if err != nil {
			return pageRead{}, err
		}
		return pageRead{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	})
}
