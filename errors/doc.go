/*
Package errors provides semantic error types for the blogstore storage layer.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrConfiguration   = errors.New("configuration error")
	    ErrSerialization   = errors.New("serialization error")
	    ErrCircuitOpen     = errors.New("circuit breaker open")
	    ErrRetryExhausted  = errors.New("retries exhausted")
	    ErrCopyTimeout     = errors.New("copy timed out")
	)

Usage:

	result, err := blogstore.HandleCrudOperation[blogmodels.Post](ctx, d, blogstore.OpGet, "blog", opts...)
	if err != nil {
	    switch {
	    case errors.IsCircuitOpen(err):
	        // store is being protected; back off
	    case errors.IsConfiguration(err):
	        // caller bug: unknown entity type, missing key
	    }
	    return err
	}

	// Map to a response class
	kind := errors.KindOf(err)

RetryExhaustedError unwraps to every attempt's error, so errors.Is matches
any of the underlying causes.
*/
package errors
