/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides in-memory fakes of the DynamoDB and S3 APIs used by
// the store clients, with call counting and failure injection for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const (
	partitionKeyAttr = "PartitionKey"
	rowKeyAttr       = "RowKey"
)

type item = map[string]types.AttributeValue

type table struct {
	items map[string]item
}

// DynamoDB is an in-memory fake of the DynamoDB operations the table client
// uses. Tables are keyed on PartitionKey/RowKey string attributes; Scan
// returns items in key order.
type DynamoDB struct {
	mu     sync.RWMutex
	tables map[string]*table
	faults *faults
}

// NewDynamoDB creates an empty fake with no tables
func NewDynamoDB() *DynamoDB {
	return &DynamoDB{
		tables: make(map[string]*table),
		faults: newFaults(),
	}
}

// WithTable pre-creates a table
func (m *DynamoDB) WithTable(name string) *DynamoDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = &table{items: make(map[string]item)}
	}
	return m
}

// FailNext makes the next len(errs) calls to op return errs in order
func (m *DynamoDB) FailNext(op string, errs ...error) *DynamoDB {
	m.faults.failNext(op, errs...)
	return m
}

// FailAlways makes every call to op return err; a nil err clears it
func (m *DynamoDB) FailAlways(op string, err error) *DynamoDB {
	m.faults.failAlways(op, err)
	return m
}

// Calls returns how many times op was invoked, including failed calls
func (m *DynamoDB) Calls(op string) int {
	return m.faults.count(op)
}

// TotalCalls returns the number of calls across all operations
func (m *DynamoDB) TotalCalls() int {
	return m.faults.total()
}

// Count returns the number of items in a table
func (m *DynamoDB) Count(tableName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

// Reset clears counters and injected failures but keeps data
func (m *DynamoDB) Reset() {
	m.faults.reset()
}

// validation mirrors the unmodeled ValidationException DynamoDB returns
func validation(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func storageKey(it item) (string, error) {
	pk, ok := it[partitionKeyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return "", validation("missing %s", partitionKeyAttr)
	}
	rk, ok := it[rowKeyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return "", validation("missing %s", rowKeyAttr)
	}
	return pk.Value + "\x00" + rk.Value, nil
}

func (m *DynamoDB) table(name *string) (*table, error) {
	t, ok := m.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found: " + aws.ToString(name))}
	}
	return t, nil
}

func copyItem(it item) item {
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func conditionFailed(expr *string, exists bool) bool {
	cond := aws.ToString(expr)
	switch {
	case strings.Contains(cond, "attribute_not_exists"):
		return exists
	case strings.Contains(cond, "attribute_exists"):
		return !exists
	default:
		return false
	}
}

func (m *DynamoDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := m.faults.enter("GetItem"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := storageKey(in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := t.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

func (m *DynamoDB) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := m.faults.enter("PutItem"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := storageKey(in.Item)
	if err != nil {
		return nil, err
	}
	_, exists := t.items[key]
	if conditionFailed(in.ConditionExpression, exists) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *DynamoDB) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if err := m.faults.enter("DeleteItem"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(in.TableName)
	if err != nil {
		return nil, err
	}
	key, err := storageKey(in.Key)
	if err != nil {
		return nil, err
	}
	_, exists := t.items[key]
	if conditionFailed(in.ConditionExpression, exists) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	delete(t.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Scan walks items in key order starting after ExclusiveStartKey. Limit
// bounds the number of items evaluated, as in DynamoDB; the filter is
// applied afterwards. LastEvaluatedKey is set whenever Limit is reached,
// even when nothing follows.
func (m *DynamoDB) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := m.faults.enter("Scan"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(in.TableName)
	if err != nil {
		return nil, err
	}

	match, err := compileFilter(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p, err := t.page(keys, in.ExclusiveStartKey, in.Limit, match)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{
		Items:            p.items,
		Count:            int32(len(p.items)),
		ScannedCount:     p.scanned,
		LastEvaluatedKey: p.last,
	}, nil
}

// Query reads a single partition in RowKey order. Only an equality key
// condition on PartitionKey is supported.
func (m *DynamoDB) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if err := m.faults.enter("Query"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(in.TableName)
	if err != nil {
		return nil, err
	}

	partition, err := compileKeyCondition(in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	match, err := compileFilter(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	prefix := partition + "\x00"
	var keys []string
	for k := range t.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	p, err := t.page(keys, in.ExclusiveStartKey, in.Limit, match)
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{
		Items:            p.items,
		Count:            int32(len(p.items)),
		ScannedCount:     p.scanned,
		LastEvaluatedKey: p.last,
	}, nil
}

type page struct {
	items   []item
	scanned int32
	last    item
}

// page evaluates up to limit of the sorted keys after startKey
func (t *table) page(keys []string, startKey item, limit *int32, match func(item) bool) (page, error) {
	start := 0
	if len(startKey) > 0 {
		after, err := storageKey(startKey)
		if err != nil {
			return page{}, err
		}
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	n := len(keys) - start
	limited := limit != nil && int(*limit) <= n
	if limited {
		n = int(*limit)
	}

	p := page{items: []item{}}
	for _, k := range keys[start : start+n] {
		p.scanned++
		it := t.items[k]
		if match(it) {
			p.items = append(p.items, copyItem(it))
		}
	}

	if limited && n > 0 {
		last := t.items[keys[start+n-1]]
		p.last = item{
			partitionKeyAttr: last[partitionKeyAttr],
			rowKeyAttr:       last[rowKeyAttr],
		}
	}
	return p, nil
}

func (m *DynamoDB) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if err := m.faults.enter("DescribeTable"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
		ItemCount:   aws.Int64(int64(len(t.items))),
	}}, nil
}

func (m *DynamoDB) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if err := m.faults.enter("CreateTable"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := m.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table already exists: " + name)}
	}
	m.tables[name] = &table{items: make(map[string]item)}
	return &dynamodb.CreateTableOutput{TableDescription: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

// compileFilter supports the equality conjunctions the expression builder
// emits, e.g. "(#0 = :0) AND (#1 = :1)".
func compileFilter(expr *string, names map[string]string, values map[string]types.AttributeValue) (func(item) bool, error) {
	text := strings.TrimSpace(aws.ToString(expr))
	if text == "" {
		return func(item) bool { return true }, nil
	}

	type clause struct {
		attr  string
		value types.AttributeValue
	}
	var clauses []clause
	for _, part := range strings.Split(text, " AND ") {
		part = strings.Trim(strings.TrimSpace(part), "()")
		lhs, rhs, ok := strings.Cut(part, "=")
		if !ok {
			return nil, validation("mock: unsupported filter %q", text)
		}
		lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)
		if name, ok := names[lhs]; ok {
			lhs = name
		}
		value, ok := values[rhs]
		if !ok {
			return nil, validation("mock: unbound value %q", rhs)
		}
		clauses = append(clauses, clause{attr: lhs, value: value})
	}

	return func(it item) bool {
		for _, c := range clauses {
			if !attributeEqual(it[c.attr], c.value) {
				return false
			}
		}
		return true
	}, nil
}

// compileKeyCondition returns the partition value of "#pk = :pk"
func compileKeyCondition(expr *string, names map[string]string, values map[string]types.AttributeValue) (string, error) {
	text := strings.Trim(strings.TrimSpace(aws.ToString(expr)), "()")
	lhs, rhs, ok := strings.Cut(text, "=")
	if !ok || strings.Contains(text, " AND ") {
		return "", validation("mock: unsupported key condition %q", aws.ToString(expr))
	}
	lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)
	if name, ok := names[lhs]; ok {
		lhs = name
	}
	if lhs != partitionKeyAttr {
		return "", validation("mock: key condition must target %s, got %q", partitionKeyAttr, lhs)
	}
	value, ok := values[rhs].(*types.AttributeValueMemberS)
	if !ok {
		return "", validation("mock: unbound key value %q", rhs)
	}
	return value.Value, nil
}

func attributeEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	default:
		return false
	}
}
