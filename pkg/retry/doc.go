// Package retry re-runs fallible fetches with backoff.
//
// Failures carrying a retryable errors.ErrorType (network, rate_limit,
// server_error) are retried up to MaxAttempts; anything else returns at once.
// Rate-limit failures back off on a longer schedule than network blips.
//
//	page, err := retry.DoWithResult(ctx, policy, func(ctx context.Context) (page.Page, error) {
//	    return nav.Navigate(ctx, url)
//	})
package retry
