/*
Package datastore defines the store interfaces behind the dispatcher.

TableStore[T] addresses records by partition and row key:

	type TableStore[T any] interface {
	    GetEntity(ctx context.Context, partitionKey, rowKey string) (*T, error)
	    GetAll(ctx context.Context, filter *storagemodels.Filter) ([]T, error)
	    GetPagedResults(ctx context.Context, pageSize int32, token string, filter *storagemodels.Filter) (*storagemodels.PagedResult[T], error)
	    QueryPartition(ctx context.Context, partitionKey string, filter *storagemodels.Filter) ([]T, error)
	    GetPartitionPage(ctx context.Context, partitionKey string, pageSize int32, token string, filter *storagemodels.Filter) (*storagemodels.PagedResult[T], error)
	    AddEntity(ctx context.Context, record T) error
	    UpdateEntity(ctx context.Context, record T) error
	    DeleteEntity(ctx context.Context, partitionKey, rowKey string) error
	}

Records stored in a table must implement TableRecord (on T or *T). The check
is made once when a table client is built.

BlobStore[T] addresses JSON documents by name and adds server-side Copy and
Move.

Implementations:
  - ddb: DynamoDB table store
  - s3blob: S3 blob store
  - mock: In-memory DynamoDB and S3 APIs for testing, with failure injection

Absent records are reported as nil results, never as errors, and deletes are
idempotent.
*/
package datastore
