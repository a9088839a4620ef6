package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// limitedClient decorates a Client with a global in-flight cap and a
// request-rate smoother. Every external call in the pipeline goes through
// one shared instance so the budgets hold across jobs and files.
type limitedClient struct {
	inner   Client
	permits *semaphore.Weighted
	rate    *rate.Limiter
}

// NewLimited wraps a client with a maximum number of concurrent in-flight
// calls and an optional requests-per-second ceiling (0 disables smoothing).
func NewLimited(inner Client, maxInflight int64, requestsPerSecond float64) Client {
	if maxInflight <= 0 {
		maxInflight = 100
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &limitedClient{
		inner:   inner,
		permits: semaphore.NewWeighted(maxInflight),
		rate:    limiter,
	}
}

func (c *limitedClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if err := c.permits.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "anthropic: acquire llm permit")
	}
	defer c.permits.Release(1)

	if err := c.rate.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropic: rate wait")
	}

	return c.inner.CreateMessage(ctx, req)
}
