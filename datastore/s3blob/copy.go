/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/resilience"
)

// Copy copies src to dst within the bucket and waits up to timeout for the
// destination to appear. A timeout <= 0 uses the configured default. The
// boolean reports whether the copy completed; every false result carries an
// error.
func (c *BlobClient[T]) Copy(ctx context.Context, src, dst string, timeout time.Duration) (bool, error) {
	if err := requireName("source", src); err != nil {
		return false, err
	}
	if err := requireName("destination", dst); err != nil {
		return false, err
	}
	if src == dst {
		return false, errors.NewValidationError("destination", "destination must differ from source")
	}
	if timeout <= 0 {
		timeout = c.cfg.CopyTimeout
	}

	copyID, err := resilience.Execute(ctx, c.exec, c.opName("Copy"), func(ctx context.Context) (string, error) {
		out, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(c.bucket),
			Key:        aws.String(dst),
			CopySource: aws.String(c.bucket + "/" + url.PathEscape(src)),
		})
		if err != nil {
			if isMissing(err) {
				return "", errors.NewNotFoundError(c.recordName, src)
			}
			return "", err
		}
		return copyIdentifier(out), nil
	})
	if err != nil {
		c.logFailure("Copy", err, zap.String("source", src), zap.String("destination", dst))
		return false, fmt.Errorf("failed to copy blob %s to %s: %w", src, dst, err)
	}
	c.logger.Debug("copy started",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.String("copy_id", copyID))

	if err := c.waitForBlob(ctx, src, dst, timeout); err != nil {
		c.logFailure("Copy", err, zap.String("source", src), zap.String("destination", dst), zap.String("copy_id", copyID))
		return false, err
	}
	return true, nil
}

func copyIdentifier(out *s3.CopyObjectOutput) string {
	if id := aws.ToString(out.VersionId); id != "" {
		return id
	}
	if out.CopyObjectResult != nil {
		return strings.Trim(aws.ToString(out.CopyObjectResult.ETag), `"`)
	}
	return ""
}

// waitForBlob polls dst until it exists, the timeout elapses, or ctx ends.
func (c *BlobClient[T]) waitForBlob(ctx context.Context, src, dst string, timeout time.Duration) error {
	poll := c.cfg.CopyPollInterval
	waiter := s3.NewObjectExistsWaiter(c.api, func(o *s3.ObjectExistsWaiterOptions) {
		o.MinDelay = poll
		o.MaxDelay = 4 * poll
	})
	err := waiter.Wait(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(dst),
	}, timeout)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return fmt.Errorf("copy of blob %s to %s failed: %w", src, dst, err)
	}
	return &errors.CopyTimeoutError{Source: src, Destination: dst, Timeout: timeout}
}

// Move copies src to dst, checks that the destination matches the source,
// then deletes src. If the copy does not complete, src is left in place and a
// destination created by this call is removed.
func (c *BlobClient[T]) Move(ctx context.Context, src, dst string, timeout time.Duration) (bool, error) {
	if err := requireName("source", src); err != nil {
		return false, err
	}
	if err := requireName("destination", dst); err != nil {
		return false, err
	}
	if src == dst {
		return false, errors.NewValidationError("destination", "destination must differ from source")
	}

	srcHead, err := c.head(ctx, src)
	if err != nil {
		return false, err
	}
	if srcHead == nil {
		return false, errors.NewNotFoundError(c.recordName, src)
	}
	dstHead, err := c.head(ctx, dst)
	if err != nil {
		return false, err
	}
	dstExisted := dstHead != nil

	rollback := func() {
		if dstExisted {
			return
		}
		if err := c.Delete(context.WithoutCancel(ctx), dst); err != nil {
			c.logger.Warn("failed to remove partial move destination", zap.String("destination", dst), zap.Error(err))
		}
	}

	if ok, err := c.Copy(ctx, src, dst, timeout); !ok {
		rollback()
		return false, err
	}

	copied, err := c.head(ctx, dst)
	if err != nil {
		rollback()
		return false, err
	}
	if copied == nil || aws.ToString(copied.ETag) != aws.ToString(srcHead.ETag) {
		rollback()
		err := errors.NewConditionFailedError("Move", fmt.Sprintf("destination %s does not match source %s", dst, src))
		c.logFailure("Move", err)
		return false, err
	}

	if err := c.Delete(ctx, src); err != nil {
		return false, fmt.Errorf("blob %s was copied to %s but the source was not removed: %w", src, dst, err)
	}
	c.logger.Debug("blob moved", zap.String("source", src), zap.String("destination", dst))
	return true, nil
}
