/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"reflect"
	"time"

	"github.com/suparena/blogstore/storagemodels"
)

// TableRecord is the capability a record needs to live in a table store.
type TableRecord interface {
	GetPartitionKey() string
	GetRowKey() string
}

// Validator is implemented by records that check themselves before writes.
type Validator interface {
	Validate() error
}

// TableStore is a partition/row-key addressed store of T.
type TableStore[T any] interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error)

	GetAll(ctx context.Context, filter *storagemodels.Filter) ([]T, error)

	GetPagedResults(ctx context.Context, pageSize int32, continuationToken string, filter *storagemodels.Filter) (*storagemodels.PagedResult[T], error)

	QueryPartition(ctx context.Context, partitionKey string, filter *storagemodels.Filter) ([]T, error)

	GetPartitionPage(ctx context.Context, partitionKey string, pageSize int32, continuationToken string, filter *storagemodels.Filter) (*storagemodels.PagedResult[T], error)

	AddEntity(ctx context.Context, record T) error

	UpdateEntity(ctx context.Context, record T) error

	DeleteEntity(ctx context.Context, partitionKey, rowKey string) error
}

// BlobStore is a name addressed store of JSON-serialized T.
type BlobStore[T any] interface {
	Get(ctx context.Context, name string) (*T, error)

	GetAll(ctx context.Context) ([]T, error)

	GetPaged(ctx context.Context, maxResults int32, prefix, continuationToken string) (*storagemodels.PagedResult[T], error)

	Upload(ctx context.Context, name string, record T, metadata map[string]string) error

	Update(ctx context.Context, name string, record T, metadata map[string]string) error

	Delete(ctx context.Context, name string) error

	Copy(ctx context.Context, source, destination string, timeout time.Duration) (bool, error)

	Move(ctx context.Context, source, destination string, timeout time.Duration) (bool, error)
}

var tableRecordType = reflect.TypeOf((*TableRecord)(nil)).Elem()

// SupportsTableRecord reports whether T or *T implements TableRecord.
func SupportsTableRecord[T any]() bool {
	return implements[T](tableRecordType)
}

func implements[T any](iface reflect.Type) bool {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// AsTableRecord returns rec as a TableRecord if T or *T implements it.
// A nil pointer record is reported as unsupported.
func AsTableRecord[T any](rec *T) (TableRecord, bool) {
	return as[T, TableRecord](rec)
}

// AsValidator returns rec as a Validator if T or *T implements it.
func AsValidator[T any](rec *T) (Validator, bool) {
	return as[T, Validator](rec)
}

func as[T any, I any](rec *T) (I, bool) {
	var zero I
	if rec == nil {
		return zero, false
	}
	if v := reflect.ValueOf(*rec); v.Kind() == reflect.Pointer && v.IsNil() {
		return zero, false
	}
	if r, ok := any(*rec).(I); ok {
		return r, true
	}
	if r, ok := any(rec).(I); ok {
		return r, true
	}
	return zero, false
}
