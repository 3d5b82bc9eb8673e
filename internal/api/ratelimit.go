package api

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter spaces requests evenly at requestsPerMinute, allowing bursts of
// up to ten seconds' worth.
func newRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	burst := max(1, requestsPerMinute/6)
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
}

// waitTurn blocks until the limiter admits a request or ctx ends.
func (c *Client) waitTurn(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		}
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
