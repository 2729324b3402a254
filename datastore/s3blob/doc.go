/*
Package s3blob stores records as JSON blobs in an S3 bucket.

A BlobClient is bound to one bucket and one record type. The bucket is created
on construction when it does not exist:

	client, err := s3blob.NewBlobClient[blogmodels.Image](ctx, s3Client, "images", exec, s3blob.Config{
	    Logger: logger,
	    Region: "eu-west-1",
	})

Every store call runs through the resilience.Executor under the operation name
"blob:<bucket>:<Method>", so transient failures are retried and repeated
failures open that bucket's breaker.

Copy and Move are asynchronous on the service side. Both wait for the
destination to appear, polling with the ObjectExists waiter, and report a
CopyTimeoutError when it does not appear in time. Move only deletes the source
after the destination's ETag matches the source.
*/
package s3blob
