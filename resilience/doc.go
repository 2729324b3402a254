/*
Package resilience provides the retry policy and circuit breakers that wrap
every store call.

Store clients run their calls through an Executor:

	exec := resilience.NewExecutor(resilience.DefaultRetryConfig(), resilience.DefaultBreakerConfig(), logger)
	item, err := resilience.Execute(ctx, exec, "table:blogposts:GetEntity", func(ctx context.Context) (*Post, error) {
	    return fetch(ctx)
	})

The breaker sees the retry sequence as a single call: transient errors are
retried with exponential backoff first, and only the final outcome is counted.
Breakers are keyed by operation name, so one failing operation class does not
throttle another.
*/
package resilience
