/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/suparena/blogstore/resilience"
	"github.com/suparena/blogstore/storagemodels"
)

// Stream scans the table page by page in the background and delivers each
// matching record on the returned channel. The channel is closed when the
// scan completes, the context is done, or after the first error result.
func (c *TableClient[T]) Stream(ctx context.Context, filter *storagemodels.Filter, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	// Apply options
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go c.streamWorker(ctx, filter, options, resultCh)
	return resultCh
}

// streamWorker handles the actual streaming logic
func (c *TableClient[T]) streamWorker(
	ctx context.Context,
	filter *storagemodels.Filter,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	send := func(result storagemodels.StreamResult[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- result:
			return true
		}
	}

	paginator := dynamodb.NewScanPaginator(c.api, c.scanInput(filter), func(o *dynamodb.ScanPaginatorOptions) {
		o.Limit = options.PageSize
	})

	var index int64
	pageNumber := 0
	for paginator.HasMorePages() {
		if ctx.Err() != nil {
			return
		}

		// NextPage only advances the paginator on success, so it is safe to retry.
		out, err := resilience.Execute(ctx, c.exec, c.opName("Scan"), func(ctx context.Context) (*dynamodb.ScanOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			c.logFailure("Scan", err)
			send(storagemodels.StreamResult[T]{
				Error: err,
				Meta:  storagemodels.StreamMeta{Index: index, PageNumber: pageNumber},
			})
			return
		}
		pageNumber++

		for _, item := range out.Items {
			meta := storagemodels.StreamMeta{Index: index, PageNumber: pageNumber}
			v, err := c.decode(item)
			if err != nil {
				c.logFailure("Scan", err)
				send(storagemodels.StreamResult[T]{Error: err, Meta: meta})
				return
			}
			if !send(storagemodels.StreamResult[T]{Item: *v, Meta: meta}) {
				return
			}
			index++
		}
	}
}
