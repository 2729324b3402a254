/*
Package blogstore is a resilient storage-access layer for the blog backend.
It routes generic CRUD requests for a logical entity type to a DynamoDB table
or an S3 bucket, and runs every store call through a circuit breaker and a
retry policy.

The request flow:
  - Resolve the entity type against the location registry (table or blob)
  - Construct or reuse the typed client for that resource and credential
  - Run the store call under the operation's breaker, retrying transient failures
  - Return a uniform PagedResult and record metrics and a trace span

Basic Usage:

	cfg, err := config.Load(".env")
	d, err := blogstore.NewFromConfig(cfg, logger, metrics.NewPrometheusSink(cfg.MetricsNamespace), nil)

	// Write a post
	post := blogmodels.NewPost("engineering", "ada", "Hello", "First post")
	_, err = blogstore.HandleCrudOperation[blogmodels.Post](ctx, d, blogstore.OpSet, "posts",
		storagemodels.WithData(post))

	// Page through a blog's posts
	page, err := blogstore.HandleCrudOperation[blogmodels.Post](ctx, d, blogstore.OpGetPaged, "posts",
		storagemodels.WithPartition("engineering"),
		storagemodels.WithPageSize(20))
	next := page.ContinuationToken

Errors are typed (see the errors package). A missing record is an empty
result, never an error, and an open breaker is reported as a CircuitOpenError
so callers can tell store protection apart from data errors.
*/
package blogstore
