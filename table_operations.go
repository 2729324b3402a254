/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"context"

	"github.com/suparena/blogstore/datastore"
	"github.com/suparena/blogstore/datastore/ddb"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/registry"
	"github.com/suparena/blogstore/storagemodels"
)

// tableRequest is a validated table operation, ready to run against a client.
type tableRequest[T any] struct {
	op           Operation
	partitionKey string
	rowKey       string
	filter       *storagemodels.Filter
	record       T
}

// planTable validates o for op without touching the store.
func planTable[T any](op Operation, entityType, recordName string, o storagemodels.OperationOptions) (*tableRequest[T], error) {
	if !datastore.SupportsTableRecord[T]() {
		return nil, errors.NewTypeMismatchError(entityType, recordName, "datastore.TableRecord")
	}

	req := &tableRequest[T]{op: op, partitionKey: o.PartitionKey, rowKey: o.RowKey}
	switch op {
	case OpGet, OpGetPaged:
		if req.rowKey != "" && req.partitionKey == "" {
			return nil, errors.NewConfigurationError(entityType, "row key requires a partition key")
		}
		req.filter = o.Filter

	case OpSet, OpUpdate:
		record, err := recordFrom[T](entityType, o.Data)
		if err != nil {
			return nil, err
		}
		req.record = record

	case OpDelete:
		if (req.partitionKey == "" || req.rowKey == "") && o.Data != nil {
			record, err := recordFrom[T](entityType, o.Data)
			if err != nil {
				return nil, err
			}
			if rec, ok := datastore.AsTableRecord(&record); ok {
				req.partitionKey, req.rowKey = rec.GetPartitionKey(), rec.GetRowKey()
			}
		}
		if req.partitionKey == "" || req.rowKey == "" {
			return nil, errors.NewConfigurationError(entityType, "delete requires a partition key and a row key")
		}

	default:
		return nil, unsupported(entityType, op, registry.KindTable)
	}
	return req, nil
}

func dispatchTable[T any](ctx context.Context, d *Dispatcher, op Operation, entityType, recordName string, loc registry.Location, o storagemodels.OperationOptions) (*storagemodels.PagedResult[T], error) {
	req, err := planTable[T](op, entityType, recordName, o)
	if err != nil {
		return nil, err
	}
	client, err := tableClientFor[T](ctx, d, loc.Resource, o.Credential)
	if err != nil {
		return nil, err
	}

	switch req.op {
	case OpGet:
		if req.rowKey != "" {
			item, err := client.GetEntity(ctx, req.partitionKey, req.rowKey)
			if err != nil {
				return nil, err
			}
			return storagemodels.Single(item), nil
		}
		var items []T
		if req.partitionKey != "" {
			items, err = client.QueryPartition(ctx, req.partitionKey, req.filter)
		} else {
			items, err = client.GetAll(ctx, req.filter)
		}
		if err != nil {
			return nil, err
		}
		return &storagemodels.PagedResult[T]{Items: items}, nil

	case OpGetPaged:
		// A row key narrows nothing for a paged read; the partition bounds it.
		if req.partitionKey != "" {
			return client.GetPartitionPage(ctx, req.partitionKey, o.PageSize, o.ContinuationToken, req.filter)
		}
		return client.GetPagedResults(ctx, o.PageSize, o.ContinuationToken, req.filter)

	case OpSet:
		if err := client.AddEntity(ctx, req.record); err != nil {
			return nil, err
		}
		return storagemodels.Single(&req.record), nil

	case OpUpdate:
		if err := client.UpdateEntity(ctx, req.record); err != nil {
			return nil, err
		}
		return storagemodels.Single(&req.record), nil

	default: // OpDelete
		if err := client.DeleteEntity(ctx, req.partitionKey, req.rowKey); err != nil {
			return nil, err
		}
		return storagemodels.Single[T](nil), nil
	}
}

func tableClientFor[T any](ctx context.Context, d *Dispatcher, table, credential string) (*ddb.TableClient[T], error) {
	key := clientKey{record: recordType[T](), kind: registry.KindTable, resource: table, credential: credential}
	return cachedClient(ctx, d.clients, key, func(ctx context.Context) (*ddb.TableClient[T], error) {
		conn, err := d.connect(ctx, credential)
		if err != nil {
			return nil, err
		}
		return ddb.NewTableClient[T](ctx, conn.Table, table, d.exec, d.tableCfg)
	})
}
