package limiter

import (
	"context"
	"errors"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/sony/gobreaker"
)

// ProtectionManager combines rate limiting and circuit breaking around vendor calls.
// A failed call is never retried.
type ProtectionManager struct {
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreakerManager
}

// NewProtectionManager creates a new protection manager
func NewProtectionManager(onStateChange StateChangeFunc) *ProtectionManager {
	return &ProtectionManager{
		rateLimiter:    NewRateLimiter(),
		circuitBreaker: NewCircuitBreakerManager(onStateChange),
	}
}

// Key returns the limiter key of a provider model
func Key(provider, model string) string {
	return provider + ":" + model
}

// Execute waits for the rate limiter, then runs fn through the circuit breaker.
// Rejections by either surface as ProviderCallError before fn runs.
func (pm *ProtectionManager) Execute(ctx context.Context, config registry.ProviderConfig, model string, fn func(ctx context.Context) error) error {
	key := Key(config.Name, model)

	if pm.circuitBreaker.State(key, config) == gobreaker.StateOpen {
		return errdefs.NewProviderCallError(config.Name, "circuit_breaker", gobreaker.ErrOpenState)
	}

	if err := pm.rateLimiter.Wait(ctx, key, config); err != nil {
		return errdefs.NewProviderCallError(config.Name, "rate_limit", err)
	}

	err := pm.circuitBreaker.Execute(key, config, func() error {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errdefs.NewProviderCallError(config.Name, "circuit_breaker", err)
	}
	return err
}

// Reset drops all protection state of a provider model
func (pm *ProtectionManager) Reset(provider, model string) {
	key := Key(provider, model)
	pm.rateLimiter.Reset(key)
	pm.circuitBreaker.Reset(key)
}
