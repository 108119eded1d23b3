package limiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name        string                             `json:"name"`
	MaxRequests uint32                             `json:"max_requests"`
	Interval    time.Duration                      `json:"interval"`
	Timeout     time.Duration                      `json:"timeout"`
	ReadyToTrip func(counts gobreaker.Counts) bool `json:"-"`
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit if failure rate is > 50% and we have at least 5 requests
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
}

// StateChangeFunc is notified of every breaker transition
type StateChangeFunc func(name string, from, to gobreaker.State)

// CircuitBreakerManager manages circuit breakers per provider model
type CircuitBreakerManager struct {
	breakers      map[string]*gobreaker.CircuitBreaker
	onStateChange StateChangeFunc
	mu            sync.Mutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager
func NewCircuitBreakerManager(onStateChange StateChangeFunc) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers:      make(map[string]*gobreaker.CircuitBreaker),
		onStateChange: onStateChange,
	}
}

// GetBreaker returns or creates the breaker for key
func (cbm *CircuitBreakerManager) GetBreaker(key string, config registry.ProviderConfig) *gobreaker.CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[key]; exists {
		return breaker
	}

	cbConfig := configForProvider(key, config)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cbConfig.Name,
		MaxRequests: cbConfig.MaxRequests,
		Interval:    cbConfig.Interval,
		Timeout:     cbConfig.Timeout,
		ReadyToTrip: cbConfig.ReadyToTrip,
		// Caller mistakes say nothing about vendor health
		IsSuccessful: func(err error) bool {
			return err == nil || errdefs.IsCallerError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if cbm.onStateChange != nil {
				cbm.onStateChange(name, from, to)
			}
		},
	})

	cbm.breakers[key] = breaker
	return breaker
}

// configForProvider derives breaker settings from the provider's declared throughput
func configForProvider(key string, config registry.ProviderConfig) *CircuitBreakerConfig {
	cbConfig := DefaultCircuitBreakerConfig(fmt.Sprintf("llm-%s", key))

	if config.MaxRPM > 2000 || config.MaxTPM > 100000 {
		cbConfig.MaxRequests = 5
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		}
	} else {
		cbConfig.MaxRequests = 2
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.4
		}
	}

	return cbConfig
}

// Execute runs fn through the breaker for key. Errors returned by fn pass through unchanged.
func (cbm *CircuitBreakerManager) Execute(key string, config registry.ProviderConfig, fn func() error) error {
	breaker := cbm.GetBreaker(key, config)

	_, err := breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State returns the current state of the breaker for key
func (cbm *CircuitBreakerManager) State(key string, config registry.ProviderConfig) gobreaker.State {
	return cbm.GetBreaker(key, config).State()
}

// Reset drops the breaker for key
func (cbm *CircuitBreakerManager) Reset(key string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	delete(cbm.breakers, key)
}
