package provider

import (
	"context"
	"time"

	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/sony/gobreaker"
)

// BreakerOracle decorates a CompletionOracle with a circuit breaker on the
// web-grounded search mode. Search fans out across every stale interest-city
// pair, so a degraded search backend would otherwise burn the whole budget on
// timeouts. Chat and Write are single calls per user and pass through.
type BreakerOracle struct {
	inner out.CompletionOracle
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerOracle(inner out.CompletionOracle) *BreakerOracle {
	settings := gobreaker.Settings{
		Name:        "oracle-search",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &BreakerOracle{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (o *BreakerOracle) Chat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return o.inner.Chat(ctx, prompt, systemPrompt)
}

func (o *BreakerOracle) Search(ctx context.Context, prompt, systemPrompt string) (string, error) {
	result, err := o.cb.Execute(func() (any, error) {
		return o.inner.Search(ctx, prompt, systemPrompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (o *BreakerOracle) Write(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return o.inner.Write(ctx, prompt, systemPrompt)
}
