// Package resilience retries fallible operations with exponential backoff.
//
// The container uses it to build lazy components whose constructors may
// fail transiently:
//
//	v, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (any, error) {
//	    return ctor(ctx)
//	})
//
// Errors wrapped with Permanent are never retried.
package resilience
