package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mindflow-live/mindflow/pkg/types"
)

// BreakerSettings holds configuration for the circuit breaker decorator.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// CircuitBreakerClient wraps a Client with circuit breaking so that a
// misbehaving provider fails fast instead of stalling every request. It never
// retries; an open breaker surfaces as an immediate error.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewBreaker builds the breaker state for a provider. Breaker state must
// outlive individual clients so that failure counts accumulate across
// requests; keep one breaker per provider and share it between wrappers.
func NewBreaker(name string, settings BreakerSettings) *gobreaker.CircuitBreaker {
	ratio := settings.ReadyToTripRatio
	if ratio == 0 {
		ratio = 0.6
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
	})
}

// NewCircuitBreakerClient decorates client with the shared breaker cb.
func NewCircuitBreakerClient(client Client, cb *gobreaker.CircuitBreaker) *CircuitBreakerClient {
	return &CircuitBreakerClient{client: client, cb: cb}
}

// Chat implements Client.
func (c *CircuitBreakerClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Chat(ctx, messages)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.Response), nil
}

// ChatWithStructuredOutput implements Client.
func (c *CircuitBreakerClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema interface{}) (*types.Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.ChatWithStructuredOutput(ctx, messages, schema)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.Response), nil
}

// Close implements Client.
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}
