/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PagedResult is the uniform result of every storage operation.
type PagedResult[T any] struct {
	// Items holds the records in store order.
	Items []T
	// ContinuationToken is empty when the result set is complete. Otherwise it
	// must be passed back unchanged to fetch the next page.
	ContinuationToken string
}

// HasMore reports whether another page can be requested.
func (r *PagedResult[T]) HasMore() bool {
	return r != nil && r.ContinuationToken != ""
}

// Len returns the number of items, tolerating a nil result.
func (r *PagedResult[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// Single wraps zero or one record as a result.
func Single[T any](item *T) *PagedResult[T] {
	if item == nil {
		return &PagedResult[T]{Items: []T{}}
	}
	return &PagedResult[T]{Items: []T{*item}}
}

// Filter is a store-native table filter expression with its placeholders.
type Filter struct {
	// Expression is a DynamoDB filter expression, e.g. "#0 = :0".
	Expression string
	// Names maps expression attribute name placeholders to attribute names.
	Names map[string]string
	// Values maps expression attribute value placeholders to values.
	Values map[string]types.AttributeValue
}

// FilterFromCondition builds a Filter from an expression condition.
func FilterFromCondition(cond expression.ConditionBuilder) (*Filter, error) {
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}
	return &Filter{
		Expression: *expr.Filter(),
		Names:      expr.Names(),
		Values:     expr.Values(),
	}, nil
}

// EqualsFilter matches records whose attribute equals value.
func EqualsFilter(attribute string, value any) (*Filter, error) {
	return FilterFromCondition(expression.Name(attribute).Equal(expression.Value(value)))
}
