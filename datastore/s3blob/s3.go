/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/suparena/blogstore/datastore"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/registry"
	"github.com/suparena/blogstore/resilience"
	"github.com/suparena/blogstore/storagemodels"
)

const defaultRegion = "us-east-1"

// Config holds optional BlobClient settings.
type Config struct {
	Logger            *zap.Logger
	Region            string        // Bucket location constraint (default: us-east-1)
	ContentType       string        // Content type of uploads (default: application/json)
	CopyTimeout       time.Duration // Copy/move wait when the caller passes <= 0 (default: 30s)
	CopyPollInterval  time.Duration // Delay between destination checks (default: 500ms)
	GetAllConcurrency int           // Parallel reads in GetAll and GetPaged (default: 8)
	DefaultPageSize   int32         // Page size when a caller passes <= 0 (default: 100)
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Region == "" {
		c.Region = defaultRegion
	}
	if c.ContentType == "" {
		c.ContentType = "application/json"
	}
	if c.CopyTimeout <= 0 {
		c.CopyTimeout = 30 * time.Second
	}
	if c.CopyPollInterval <= 0 {
		c.CopyPollInterval = 500 * time.Millisecond
	}
	if c.GetAllConcurrency <= 0 {
		c.GetAllConcurrency = 8
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 100
	}
	return c
}

// BlobClient implements datastore.BlobStore[T] on a single S3 bucket. Records
// are stored as UTF-8 JSON documents.
type BlobClient[T any] struct {
	api        API
	uploader   *manager.Uploader
	bucket     string
	exec       *resilience.Executor
	logger     *zap.Logger
	cfg        Config
	recordName string
}

// NewBlobClient creates the bucket if it does not exist.
func NewBlobClient[T any](ctx context.Context, api API, bucket string, exec *resilience.Executor, cfg Config) (*BlobClient[T], error) {
	if bucket == "" {
		return nil, errors.NewConfigurationError("", "bucket name is required")
	}
	cfg = cfg.withDefaults()
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultRetryConfig(), resilience.DefaultBreakerConfig(), cfg.Logger)
	}
	recordName := registry.RecordTypeName[T]()

	c := &BlobClient[T]{
		api:        api,
		uploader:   manager.NewUploader(api),
		bucket:     bucket,
		exec:       exec,
		logger:     cfg.Logger.Named("blob").With(zap.String("bucket", bucket), zap.String("record", recordName)),
		cfg:        cfg,
		recordName: recordName,
	}
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the bucket name.
func (c *BlobClient[T]) Name() string {
	return c.bucket
}

func (c *BlobClient[T]) opName(method string) string {
	return "blob:" + c.bucket + ":" + method
}

func (c *BlobClient[T]) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	if errors.IsCallerError(err) {
		c.logger.Warn("blob operation rejected", fields...)
		return
	}
	c.logger.Error("blob operation failed", fields...)
}

func isMissing(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if stderrors.As(err, &notFound) || stderrors.As(err, &noSuchKey) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return stderrors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}

func (c *BlobClient[T]) ensureBucket(ctx context.Context) error {
	exists, err := resilience.Execute(ctx, c.exec, c.opName("HeadBucket"), func(ctx context.Context) (bool, error) {
		_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
		if err != nil {
			var noSuchBucket *types.NoSuchBucket
			if isMissing(err) || stderrors.As(err, &noSuchBucket) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		c.logFailure("HeadBucket", err)
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}

	c.logger.Info("creating bucket")
	input := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	if c.cfg.Region != defaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.cfg.Region),
		}
	}
	err = resilience.Do(ctx, c.exec, c.opName("CreateBucket"), func(ctx context.Context) error {
		_, err := c.api.CreateBucket(ctx, input)
		var exists *types.BucketAlreadyExists
		var owned *types.BucketAlreadyOwnedByYou
		if stderrors.As(err, &exists) || stderrors.As(err, &owned) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logFailure("CreateBucket", err)
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

func requireName(field, name string) error {
	if name == "" {
		return errors.NewValidationError(field, "blob name is required")
	}
	return nil
}

// Get returns the record stored under name, or nil if absent.
func (c *BlobClient[T]) Get(ctx context.Context, name string) (*T, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}

	data, err := resilience.Execute(ctx, c.exec, c.opName("Get"), func(ctx context.Context) ([]byte, error) {
		out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(name),
		})
		if err != nil {
			if isMissing(err) {
				return nil, nil
			}
			return nil, err
		}
		defer out.Body.Close()
		body, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = []byte{}
		}
		return body, nil
	})
	if err != nil {
		c.logFailure("Get", err, zap.String("name", name))
		return nil, fmt.Errorf("failed to get blob %s: %w", name, err)
	}
	if data == nil {
		return nil, nil
	}

	result := new(T)
	if err := json.Unmarshal(data, result); err != nil {
		err = errors.NewSerializationError(name, err)
		c.logFailure("Get", err, zap.String("name", name))
		return nil, err
	}
	return result, nil
}

// fetch reads names concurrently, preserving order and skipping blobs that
// disappeared after listing.
func (c *BlobClient[T]) fetch(ctx context.Context, names []string) ([]T, error) {
	results := make([]*T, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.GetAllConcurrency)
	for i, name := range names {
		g.Go(func() error {
			v, err := c.Get(gctx, name)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]T, 0, len(names))
	for _, v := range results {
		if v != nil {
			items = append(items, *v)
		}
	}
	return items, nil
}

// GetAll lists the whole bucket and reads every blob. This costs one store
// call per blob and is meant for small containers.
func (c *BlobClient[T]) GetAll(ctx context.Context) ([]T, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)})
	for paginator.HasMorePages() {
		out, err := resilience.Execute(ctx, c.exec, c.opName("List"), func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			c.logFailure("List", err)
			return nil, fmt.Errorf("failed to list bucket %s: %w", c.bucket, err)
		}
		for _, obj := range out.Contents {
			names = append(names, aws.ToString(obj.Key))
		}
	}
	if len(names) > 1000 {
		c.logger.Warn("reading a large bucket blob by blob", zap.Int("blobs", len(names)))
	}
	return c.fetch(ctx, names)
}

// GetPaged returns up to maxResults records whose names start with prefix,
// resuming after continuationToken.
func (c *BlobClient[T]) GetPaged(ctx context.Context, maxResults int32, prefix, continuationToken string) (*storagemodels.PagedResult[T], error) {
	if maxResults <= 0 {
		maxResults = c.cfg.DefaultPageSize
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		MaxKeys: aws.Int32(maxResults),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	out, err := resilience.Execute(ctx, c.exec, c.opName("List"), func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
		return c.api.ListObjectsV2(ctx, input)
	})
	if err != nil {
		c.logFailure("List", err, zap.String("prefix", prefix))
		return nil, fmt.Errorf("failed to list bucket %s: %w", c.bucket, err)
	}

	names := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		names = append(names, aws.ToString(obj.Key))
	}
	items, err := c.fetch(ctx, names)
	if err != nil {
		return nil, err
	}

	result := &storagemodels.PagedResult[T]{Items: items}
	if aws.ToBool(out.IsTruncated) {
		result.ContinuationToken = aws.ToString(out.NextContinuationToken)
	}
	return result, nil
}

func (c *BlobClient[T]) encode(name string, record T) ([]byte, error) {
	if v, ok := datastore.AsValidator(&record); ok {
		if err := v.Validate(); err != nil {
			return nil, errors.NewValidationError("", err.Error())
		}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, errors.NewSerializationError(name, err)
	}
	return data, nil
}

// Upload writes record under name, overwriting any existing blob.
func (c *BlobClient[T]) Upload(ctx context.Context, name string, record T, metadata map[string]string) error {
	if err := requireName("name", name); err != nil {
		return err
	}
	data, err := c.encode(name, record)
	if err != nil {
		return err
	}
	return c.write(ctx, "Upload", name, data, metadata)
}

// Update overwrites an existing blob. A missing blob is NotFound.
func (c *BlobClient[T]) Update(ctx context.Context, name string, record T, metadata map[string]string) error {
	if err := requireName("name", name); err != nil {
		return err
	}
	data, err := c.encode(name, record)
	if err != nil {
		return err
	}

	head, err := c.head(ctx, name)
	if err != nil {
		return err
	}
	if head == nil {
		err := errors.NewNotFoundError(c.recordName, name)
		c.logFailure("Update", err, zap.String("name", name))
		return err
	}
	return c.write(ctx, "Update", name, data, metadata)
}

func (c *BlobClient[T]) write(ctx context.Context, method, name string, data []byte, metadata map[string]string) error {
	err := resilience.Do(ctx, c.exec, c.opName(method), func(ctx context.Context) error {
		_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(name),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(c.cfg.ContentType),
			Metadata:    metadata,
		})
		return err
	})
	if err != nil {
		c.logFailure(method, err, zap.String("name", name))
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return nil
}

// head returns the blob's attributes, or nil if absent.
func (c *BlobClient[T]) head(ctx context.Context, name string) (*s3.HeadObjectOutput, error) {
	out, err := resilience.Execute(ctx, c.exec, c.opName("Head"), func(ctx context.Context) (*s3.HeadObjectOutput, error) {
		out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(name),
		})
		if err != nil {
			if isMissing(err) {
				return nil, nil
			}
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		c.logFailure("Head", err, zap.String("name", name))
		return nil, fmt.Errorf("failed to read attributes of blob %s: %w", name, err)
	}
	return out, nil
}

// Delete removes name. Deleting an absent blob succeeds.
func (c *BlobClient[T]) Delete(ctx context.Context, name string) error {
	if err := requireName("name", name); err != nil {
		return err
	}

	err := resilience.Do(ctx, c.exec, c.opName("Delete"), func(ctx context.Context) error {
		_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(name),
		})
		if err != nil && isMissing(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logFailure("Delete", err, zap.String("name", name))
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	return nil
}
