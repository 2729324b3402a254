/*
Package ddb provides the DynamoDB table store.

TableClient[T] stores records that implement datastore.TableRecord in a table
keyed on PartitionKey (HASH) and RowKey (RANGE). The table is created on first
use with on-demand billing.

Every DynamoDB call runs through a resilience.Executor under a breaker named
"table:<table>:<Method>":

	client, err := ddb.NewTableClient[blogmodels.Post](ctx, dynamodbClient, "blogposts", exec, ddb.Config{Logger: logger})

	err = client.AddEntity(ctx, post)          // AlreadyExistsError on duplicate key
	post, err := client.GetEntity(ctx, pk, rk) // nil, nil when absent
	err = client.UpdateEntity(ctx, post)       // NotFoundError when absent
	err = client.DeleteEntity(ctx, pk, rk)     // idempotent

Paging:
GetPagedResults returns an opaque continuation token that must be passed back
unchanged:

	page, err := client.GetPagedResults(ctx, 25, "", filter)
	for page.HasMore() {
	    page, err = client.GetPagedResults(ctx, 25, page.ContinuationToken, filter)
	}

Partition reads use Query on the hash key instead of scanning the table:

	posts, err := client.QueryPartition(ctx, "author-42", nil)
	page, err := client.GetPartitionPage(ctx, "author-42", 25, "", filter)

A token is returned only when at least one more matching record exists.

Streaming:
Stream delivers records on a channel while scanning in the background:

	for res := range client.Stream(ctx, nil, storagemodels.WithBufferSize(10)) {
	    if res.Error != nil {
	        return res.Error
	    }
	    process(res.Item)
	}
*/
package ddb
