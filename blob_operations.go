/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"context"

	"github.com/suparena/blogstore/datastore/s3blob"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/registry"
	"github.com/suparena/blogstore/storagemodels"
)

// blobRequest is a validated blob operation, ready to run against a client.
type blobRequest[T any] struct {
	op          Operation
	name        string
	destination string
	record      T
}

// planBlob validates o for op without touching the store.
func planBlob[T any](op Operation, entityType string, o storagemodels.OperationOptions) (*blobRequest[T], error) {
	req := &blobRequest[T]{op: op, name: o.Key, destination: o.Destination}
	switch op {
	case OpGetPaged:
		return req, nil
	case OpGet, OpSet, OpUpdate, OpDelete, OpCopy, OpMove:
	default:
		return nil, unsupported(entityType, op, registry.KindBlob)
	}

	if req.name == "" {
		return nil, errors.NewConfigurationError(entityType, "blob name is required for "+string(op))
	}
	switch op {
	case OpSet, OpUpdate:
		record, err := recordFrom[T](entityType, o.Data)
		if err != nil {
			return nil, err
		}
		req.record = record
	case OpCopy, OpMove:
		if req.destination == "" {
			return nil, errors.NewConfigurationError(entityType, "destination blob name is required for "+string(op))
		}
	}
	return req, nil
}

func dispatchBlob[T any](ctx context.Context, d *Dispatcher, op Operation, entityType string, loc registry.Location, o storagemodels.OperationOptions) (*storagemodels.PagedResult[T], error) {
	req, err := planBlob[T](op, entityType, o)
	if err != nil {
		return nil, err
	}
	client, err := blobClientFor[T](ctx, d, loc.Resource, o.Credential)
	if err != nil {
		return nil, err
	}

	switch req.op {
	case OpGet:
		item, err := client.Get(ctx, req.name)
		if err != nil {
			return nil, err
		}
		return storagemodels.Single(item), nil

	case OpGetPaged:
		return client.GetPaged(ctx, o.PageSize, o.Prefix, o.ContinuationToken)

	case OpSet:
		if err := client.Upload(ctx, req.name, req.record, o.Metadata); err != nil {
			return nil, err
		}
		return storagemodels.Single(&req.record), nil

	case OpUpdate:
		if err := client.Update(ctx, req.name, req.record, o.Metadata); err != nil {
			return nil, err
		}
		return storagemodels.Single(&req.record), nil

	case OpDelete:
		if err := client.Delete(ctx, req.name); err != nil {
			return nil, err
		}
		return storagemodels.Single[T](nil), nil

	case OpCopy:
		if _, err := client.Copy(ctx, req.name, req.destination, o.CopyTimeout); err != nil {
			return nil, err
		}
		return storagemodels.Single[T](nil), nil

	default: // OpMove
		if _, err := client.Move(ctx, req.name, req.destination, o.CopyTimeout); err != nil {
			return nil, err
		}
		return storagemodels.Single[T](nil), nil
	}
}

func blobClientFor[T any](ctx context.Context, d *Dispatcher, bucket, credential string) (*s3blob.BlobClient[T], error) {
	key := clientKey{record: recordType[T](), kind: registry.KindBlob, resource: bucket, credential: credential}
	return cachedClient(ctx, d.clients, key, func(ctx context.Context) (*s3blob.BlobClient[T], error) {
		conn, err := d.connect(ctx, credential)
		if err != nil {
			return nil, err
		}
		cfg := d.blobCfg
		if cfg.Region == "" {
			cfg.Region = conn.Region
		}
		return s3blob.NewBlobClient[T](ctx, conn.Blob, bucket, d.exec, cfg)
	})
}
