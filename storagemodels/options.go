/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"
)

// OperationOptions is the request-scoped value bag handed to the dispatcher.
// It is built fresh for every call and never persisted.
type OperationOptions struct {
	Credential        string            // Connection string; empty selects the default connection
	Data              any               // Payload for set/update (T or *T)
	PartitionKey      string            // Table partition key
	RowKey            string            // Table row key
	Key               string            // Blob name (copy/move source)
	Destination       string            // Copy/move destination blob name
	Filter            *Filter           // Table filter
	Prefix            string            // Blob listing prefix
	PageSize          int32             // Page size for paged reads (default: dispatcher setting)
	ContinuationToken string            // Token from a previous page
	Metadata          map[string]string // Blob metadata on upload/update
	CopyTimeout       time.Duration     // Copy/move wait limit (default: dispatcher setting)
}

// OperationOption is a functional option for configuring an operation
type OperationOption func(*OperationOptions)

// NewOperationOptions applies opts to an empty OperationOptions.
func NewOperationOptions(opts ...OperationOption) OperationOptions {
	var options OperationOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithCredential selects a connection for this call
func WithCredential(credential string) OperationOption {
	return func(opts *OperationOptions) {
		opts.Credential = credential
	}
}

// WithData sets the record written by set/update
func WithData(data any) OperationOption {
	return func(opts *OperationOptions) {
		opts.Data = data
	}
}

// WithTableKey addresses a single table record
func WithTableKey(partitionKey, rowKey string) OperationOption {
	return func(opts *OperationOptions) {
		opts.PartitionKey = partitionKey
		opts.RowKey = rowKey
	}
}

// WithPartition restricts a table read to one partition
func WithPartition(partitionKey string) OperationOption {
	return func(opts *OperationOptions) {
		opts.PartitionKey = partitionKey
	}
}

// WithBlobName addresses a single blob
func WithBlobName(name string) OperationOption {
	return func(opts *OperationOptions) {
		opts.Key = name
	}
}

// WithDestination sets the copy/move target blob name
func WithDestination(name string) OperationOption {
	return func(opts *OperationOptions) {
		opts.Destination = name
	}
}

// WithFilter sets a table filter
func WithFilter(filter *Filter) OperationOption {
	return func(opts *OperationOptions) {
		opts.Filter = filter
	}
}

// WithPrefix restricts a blob listing to names starting with prefix
func WithPrefix(prefix string) OperationOption {
	return func(opts *OperationOptions) {
		opts.Prefix = prefix
	}
}

// WithPageSize sets the maximum number of records per page
func WithPageSize(size int32) OperationOption {
	return func(opts *OperationOptions) {
		opts.PageSize = size
	}
}

// WithContinuationToken resumes a paged read
func WithContinuationToken(token string) OperationOption {
	return func(opts *OperationOptions) {
		opts.ContinuationToken = token
	}
}

// WithMetadata attaches blob metadata to an upload
func WithMetadata(metadata map[string]string) OperationOption {
	return func(opts *OperationOptions) {
		opts.Metadata = metadata
	}
}

// WithCopyTimeout bounds how long copy/move waits for completion
func WithCopyTimeout(timeout time.Duration) OperationOption {
	return func(opts *OperationOptions) {
		opts.CopyTimeout = timeout
	}
}
