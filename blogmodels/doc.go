/*
Package blogmodels contains the blog records served through blogstore.

Post and Comment are table records: they expose GetPartitionKey and GetRowKey
and validate themselves before every write. Image is a blob record stored as
JSON.

	post := blogmodels.NewPost("engineering", "ada", "Hello", "First post")
	_, err := blogstore.HandleCrudOperation[blogmodels.Post](ctx, d, blogstore.OpSet, "posts",
	    storagemodels.WithData(post))
*/
package blogmodels
