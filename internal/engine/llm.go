package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/resilience"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

// guardedClient routes every LLM call through the provider circuit breaker
// so a hard provider outage fails fast instead of burning the retry budget
// of every in-flight file.
type guardedClient struct {
	inner   anthropic.Client
	breaker *resilience.CircuitBreaker
}

func (c *guardedClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.inner.CreateMessage(ctx, req)
	})
}

// wrapClient layers the global in-flight cap, the request-rate smoother,
// and the circuit breaker onto the raw provider client.
func wrapClient(raw anthropic.Client, cfg *config.Config) anthropic.Client {
	limited := anthropic.NewLimited(raw, int64(cfg.Anthropic.MaxInflight), cfg.Anthropic.RequestsPerSecond)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		ResetTimeout:     secsToDuration(cfg.Circuit.ResetTimeoutSecs),
		ShouldTrip:       resilience.IsRetriable,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("llm circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &guardedClient{inner: limited, breaker: breaker}
}
