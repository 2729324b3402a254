/*
Package storagemodels defines the data structures shared by the dispatcher and
the store clients.

Key Types:

OperationOptions:
The request-scoped value bag, built from functional options:

	opts := storagemodels.NewOperationOptions(
	    storagemodels.WithPageSize(25),
	    storagemodels.WithContinuationToken(token),
	    storagemodels.WithFilter(filter),
	)

PagedResult:
Every operation returns records in store order plus an optional token:

	type PagedResult[T any] struct {
	    Items             []T
	    ContinuationToken string // empty when complete
	}

Filter:
A DynamoDB filter expression with its placeholders, usually built with the
expression package:

	filter, err := storagemodels.FilterFromCondition(
	    expression.Name("Author").Equal(expression.Value("ada")),
	)
*/
package storagemodels
