// Package resilience retries fallible operations with backoff.
//
// ExecuteWithRetry is the simple form: linear backoff, every error retried,
// and a single aggregate error once the attempts run out.
//
//	user, err := resilience.ExecuteWithRetry(ctx, 3, func() (User, error) {
//	    return client.FetchUser(ctx, id)
//	})
//	if errors.Is(err, resilience.ErrMaxRetriesExceeded) {
//	    // err unwraps to the last FetchUser error
//	}
//
// Retry takes a RetryConfig for custom backoff strategies, retry
// predicates, metrics and logging. Each call is traced as one
// "retry.execute" span with an event per failed attempt.
package resilience
