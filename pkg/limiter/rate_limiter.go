package limiter

import (
	"context"
	"fmt"
	"sync"

	"github.com/snow-ghost/robotai/pkg/registry"
	"golang.org/x/time/rate"
)

// RateLimiter manages rate limiting per provider model
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetLimiter returns or creates the limiter for key, sized from the provider limits
func (rl *RateLimiter) GetLimiter(key string, config registry.ProviderConfig) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	// Use the more restrictive limit between RPM and TPM
	rpm := float64(config.MaxRPM)

	// Convert TPM to requests per minute (assuming average 100 tokens per request)
	tpmAsRPM := float64(config.MaxTPM) / 100.0

	var limit float64
	switch {
	case rpm > 0 && tpmAsRPM > 0:
		limit = min(rpm, tpmAsRPM)
	case rpm > 0:
		limit = rpm
	case tpmAsRPM > 0:
		limit = tpmAsRPM
	default:
		limit = 1000.0
	}

	burst := int(limit / 10.0) // Burst = 1/10 of limit
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(limit/60.0), burst)
	rl.limiters[key] = limiter

	return limiter
}

// Wait blocks until the limiter for key allows one request
func (rl *RateLimiter) Wait(ctx context.Context, key string, config registry.ProviderConfig) error {
	if err := rl.GetLimiter(key, config).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Reset drops the limiter for key
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.limiters, key)
}
