// Package ratelimit gates outbound page and asset requests.
//
// Strategies, selected by rate_limit.strategy:
//
//   - bucket: fixed capacity refilled once per minute
//   - window: at most N requests in any sliding one-minute window
//   - smooth: evenly spaced requests with a burst allowance (golang.org/x/time/rate)
//   - none: no limiting
//
// Every Wait honours context cancellation.
package ratelimit
