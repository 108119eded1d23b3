package providers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/snow-ghost/robotai/pkg/cost"
	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/metrics"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tracing"
)

// DispatcherConfig holds the observability collaborators of a dispatcher; all are optional
type DispatcherConfig struct {
	Logger  *logging.Logger
	Metrics *metrics.PrometheusMetrics
	Tracer  *tracing.Tracer
	Costs   *cost.Calculator
}

// Dispatcher maps provider names to providers. It is populated at startup and read-only afterwards.
type Dispatcher struct {
	providers map[string]Provider
	logger    *logging.Logger
	metrics   *metrics.PrometheusMetrics
	tracer    *tracing.Tracer
	costs     *cost.Calculator
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Tracer == nil {
		config.Tracer = tracing.NewNoopTracer()
	}

	return &Dispatcher{
		providers: make(map[string]Provider),
		logger:    config.Logger,
		metrics:   config.Metrics,
		tracer:    config.Tracer,
		costs:     config.Costs,
	}
}

// BuildDispatcher creates every provider of reg. When enabled is empty, providers whose
// credentials are missing are skipped; providers listed in enabled must build.
func BuildDispatcher(ctx context.Context, reg *registry.Registry, enabled []string, deps Dependencies, config DispatcherConfig) (*Dispatcher, error) {
	d := NewDispatcher(config)
	deps = deps.withDefaults()

	wanted := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		if reg.FindProvider(name) == nil {
			return nil, &errdefs.UnknownProviderError{Name: name, Valid: reg.ProviderNames()}
		}
		wanted[name] = true
	}

	for _, providerConfig := range reg.Providers {
		if len(wanted) > 0 && !wanted[providerConfig.Name] {
			continue
		}

		provider, err := CreateProvider(ctx, providerConfig, deps)
		if err != nil {
			if len(wanted) > 0 {
				return nil, fmt.Errorf("failed to create provider %s: %w", providerConfig.Name, err)
			}
			d.logger.Warn("skipping provider", "provider", providerConfig.Name, "error", err)
			continue
		}

		if err := d.Register(provider); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Register adds a provider under its name
func (d *Dispatcher) Register(p Provider) error {
	if _, exists := d.providers[p.Name()]; exists {
		return fmt.Errorf("provider %s already registered", p.Name())
	}
	d.providers[p.Name()] = p
	return nil
}

// Providers returns the registered provider names, sorted
func (d *Dispatcher) Providers() []string {
	names := make([]string, 0, len(d.providers))
	for name := range d.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider returns a registered provider
func (d *Dispatcher) Provider(name string) (Provider, bool) {
	p, ok := d.providers[name]
	return p, ok
}

// Dispatch routes the prompt to its provider and returns the provider's response.
// An unknown provider fails before any vendor call.
func (d *Dispatcher) Dispatch(ctx context.Context, p prompt.Prompt) (*prompt.Response, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	provider, ok := d.providers[p.Config.Provider]
	if !ok {
		return nil, &errdefs.UnknownProviderError{Name: p.Config.Provider, Valid: d.Providers()}
	}

	logger := d.logger
	if p.Metadata.RequestID != "" {
		logger = logger.WithRequestID(ctx, p.Metadata.RequestID)
	}
	logger.Debug("selected provider",
		"provider", provider.Name(),
		"tool", string(p.Tool),
		"origin", p.Metadata.Origin)

	ctx, span := d.tracer.StartDispatchSpan(ctx, p.Metadata.Origin, p.Config.Provider, string(p.Tool), p.Config.Model)
	defer span.End()

	start := time.Now()
	resp, err := provider.Handle(ctx, p)
	duration := time.Since(start)

	d.recordAssistantAction(p, err)

	if err != nil {
		tracing.RecordSpanError(span, err)
		if d.metrics != nil {
			d.metrics.RecordRequest(p.Config.Provider, string(p.Tool), p.Config.Model, "error")
		}
		logger.Debug("dispatch failed", "provider", p.Config.Provider, "error", err)
		return nil, err
	}

	tracing.RecordSpanSuccess(span)
	tracing.RecordSpanTokens(span, resp.Metadata.PromptTokens, resp.Metadata.CompletionTokens)

	var totalCost float64
	if d.costs != nil && resp.Metadata.TotalTokens() > 0 {
		if result, costErr := d.costs.CalcCostForResponse(resp.Metadata); costErr == nil {
			totalCost = result.TotalCost
			tracing.RecordSpanCost(span, result.TotalCost, result.Currency)
			if d.metrics != nil {
				d.metrics.RecordCost(resp.Metadata.Provider, resp.Metadata.Model, result.Currency, result.TotalCost)
			}
		}
	}

	if d.metrics != nil {
		d.metrics.RecordRequest(p.Config.Provider, string(p.Tool), resp.Metadata.Model, "success")
		d.metrics.RecordLatency(p.Config.Provider, string(p.Tool), resp.Metadata.Model, duration)
		d.metrics.RecordTokens(p.Config.Provider, resp.Metadata.Model, resp.Metadata.PromptTokens, resp.Metadata.CompletionTokens)
	}

	logger.LogLLMRequest(ctx, resp.Metadata.Provider, resp.Metadata.Model, "success", duration,
		resp.Metadata.TotalTokens(), totalCost, p.Metadata.RequestID)

	return resp, nil
}

func (d *Dispatcher) recordAssistantAction(p prompt.Prompt, err error) {
	if d.metrics == nil {
		return
	}
	data, ok := p.Data.(*prompt.AssistantData)
	if !ok {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordAssistantAction(p.Config.Provider, string(data.Action), status)
}
