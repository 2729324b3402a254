/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type object struct {
	data         []byte
	etag         string
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

type bucket struct {
	objects map[string]*object
}

// S3 is an in-memory fake of the S3 operations the blob client uses,
// including the calls made by the upload manager for single-part uploads.
type S3 struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	faults  *faults
	stall   bool
}

// NewS3 creates an empty fake with no buckets
func NewS3() *S3 {
	return &S3{
		buckets: make(map[string]*bucket),
		faults:  newFaults(),
	}
}

// WithBucket pre-creates a bucket
func (m *S3) WithBucket(name string) *S3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		m.buckets[name] = &bucket{objects: make(map[string]*object)}
	}
	return m
}

// StallCopies makes CopyObject accept requests without ever materializing
// the destination, so callers waiting on the copy time out
func (m *S3) StallCopies(stall bool) *S3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stall = stall
	return m
}

// FailNext makes the next len(errs) calls to op return errs in order
func (m *S3) FailNext(op string, errs ...error) *S3 {
	m.faults.failNext(op, errs...)
	return m
}

// FailAlways makes every call to op return err; a nil err clears it
func (m *S3) FailAlways(op string, err error) *S3 {
	m.faults.failAlways(op, err)
	return m
}

// Calls returns how many times op was invoked, including failed calls
func (m *S3) Calls(op string) int {
	return m.faults.count(op)
}

// TotalCalls returns the number of calls across all operations
func (m *S3) TotalCalls() int {
	return m.faults.total()
}

// Reset clears counters and injected failures but keeps data
func (m *S3) Reset() {
	m.faults.reset()
}

// PutRaw stores raw bytes directly, bypassing failure injection
func (m *S3) PutRaw(bucketName, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucketName]
	if !ok {
		b = &bucket{objects: make(map[string]*object)}
		m.buckets[bucketName] = b
	}
	b.objects[key] = newObject(data, "", nil)
}

// Exists reports whether key is present in bucketName
func (m *S3) Exists(bucketName, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.buckets[bucketName]; ok {
		_, exists := b.objects[key]
		return exists
	}
	return false
}

// Metadata returns the user metadata stored with key
func (m *S3) Metadata(bucketName, key string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.buckets[bucketName]; ok {
		if obj, ok := b.objects[key]; ok {
			return obj.metadata
		}
	}
	return nil
}

func newObject(data []byte, contentType string, metadata map[string]string) *object {
	sum := md5.Sum(data)
	return &object{
		data:         data,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		contentType:  contentType,
		metadata:     metadata,
		lastModified: time.Now().UTC(),
	}
}

func (m *S3) bucket(name *string) (*bucket, error) {
	b, ok := m.buckets[aws.ToString(name)]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("bucket not found: " + aws.ToString(name))}
	}
	return b, nil
}

func (m *S3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if err := m.faults.enter("HeadBucket"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.buckets[aws.ToString(in.Bucket)]; !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *S3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if err := m.faults.enter("CreateBucket"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := aws.ToString(in.Bucket)
	if _, ok := m.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{Message: aws.String("bucket exists: " + name)}
	}
	m.buckets[name] = &bucket{objects: make(map[string]*object)}
	return &s3.CreateBucketOutput{Location: aws.String("/" + name)}, nil
}

func (m *S3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := m.faults.enter("GetObject"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		Metadata:      obj.metadata,
		LastModified:  aws.Time(obj.lastModified),
	}, nil
}

func (m *S3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := m.faults.enter("PutObject"); err != nil {
		return nil, err
	}
	var data []byte
	if in.Body != nil {
		var err error
		if data, err = io.ReadAll(in.Body); err != nil {
			return nil, fmt.Errorf("mock: read body: %w", err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	obj := newObject(data, aws.ToString(in.ContentType), in.Metadata)
	b.objects[aws.ToString(in.Key)] = obj
	return &s3.PutObjectOutput{ETag: aws.String(obj.etag)}, nil
}

func (m *S3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if err := m.faults.enter("HeadObject"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		Metadata:      obj.metadata,
		LastModified:  aws.Time(obj.lastModified),
	}, nil
}

func (m *S3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := m.faults.enter("DeleteObject"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	delete(b.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 lists keys in lexical order. The continuation token is the
// last key of the previous page.
func (m *S3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := m.faults.enter("ListObjectsV2"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}

	prefix := aws.ToString(in.Prefix)
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(in.ContinuationToken); token != "" {
		start = sort.SearchStrings(keys, token)
		if start < len(keys) && keys[start] == token {
			start++
		}
	}

	maxKeys := 1000
	if in.MaxKeys != nil && *in.MaxKeys > 0 {
		maxKeys = int(*in.MaxKeys)
	}
	end := start + maxKeys
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{
		Name:              in.Bucket,
		Prefix:            in.Prefix,
		MaxKeys:           aws.Int32(int32(maxKeys)),
		ContinuationToken: in.ContinuationToken,
		KeyCount:          aws.Int32(int32(end - start)),
		IsTruncated:       aws.Bool(end < len(keys)),
	}
	for _, k := range keys[start:end] {
		obj := b.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			ETag:         aws.String(obj.etag),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end-1])
	}
	return out, nil
}

// CopyObject copies within or across buckets. CopySource is
// "bucket/url-escaped-key". When copies are stalled the request succeeds but
// the destination never appears.
func (m *S3) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	if err := m.faults.enter("CopyObject"); err != nil {
		return nil, err
	}
	srcBucket, escapedKey, ok := strings.Cut(strings.TrimPrefix(aws.ToString(in.CopySource), "/"), "/")
	if !ok {
		return nil, fmt.Errorf("mock: invalid copy source %q", aws.ToString(in.CopySource))
	}
	srcKey, err := url.PathUnescape(escapedKey)
	if err != nil {
		return nil, fmt.Errorf("mock: invalid copy source key: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	src, err := m.bucket(aws.String(srcBucket))
	if err != nil {
		return nil, err
	}
	obj, ok := src.objects[srcKey]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	dst, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	if !m.stall {
		clone := *obj
		clone.lastModified = time.Now().UTC()
		dst.objects[aws.ToString(in.Key)] = &clone
	}
	return &s3.CopyObjectOutput{
		CopyObjectResult: &types.CopyObjectResult{
			ETag:         aws.String(obj.etag),
			LastModified: aws.Time(time.Now().UTC()),
		},
	}, nil
}

func (m *S3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	_ = m.faults.enter("CreateMultipartUpload")
	return nil, fmt.Errorf("mock: multipart uploads are not supported")
}

func (m *S3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	_ = m.faults.enter("UploadPart")
	return nil, fmt.Errorf("mock: multipart uploads are not supported")
}

func (m *S3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	_ = m.faults.enter("CompleteMultipartUpload")
	return nil, fmt.Errorf("mock: multipart uploads are not supported")
}

func (m *S3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	_ = m.faults.enter("AbortMultipartUpload")
	return &s3.AbortMultipartUploadOutput{}, nil
}
