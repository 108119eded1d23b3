package cost

import (
	"fmt"
	"math"

	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
)

// CostResult represents the calculated cost breakdown
type CostResult struct {
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	Currency     string  `json:"currency"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
}

// Calculator prices responses against the registry
type Calculator struct {
	registry *registry.Registry
}

// NewCalculator creates a new cost calculator
func NewCalculator(registry *registry.Registry) *Calculator {
	return &Calculator{
		registry: registry,
	}
}

// CalcCost calculates the cost of the given token counts
func CalcCost(promptTokens, completionTokens int, p registry.Pricing) (inputCost, outputCost, total float64) {
	inputCost = round6(float64(promptTokens) * p.InputPer1K / 1000.0)
	outputCost = round6(float64(completionTokens) * p.OutputPer1K / 1000.0)
	total = round6(inputCost + outputCost)
	return inputCost, outputCost, total
}

// CalcCostForResponse prices a response using the provider and model in its metadata
func (c *Calculator) CalcCostForResponse(meta prompt.ResponseMetadata) (*CostResult, error) {
	provider := c.registry.FindProvider(meta.Provider)
	if provider == nil {
		return nil, fmt.Errorf("provider %s not found in registry", meta.Provider)
	}

	pricing, ok := provider.PricingFor(meta.Model)
	if !ok {
		return nil, fmt.Errorf("no pricing for model %s of provider %s", meta.Model, meta.Provider)
	}

	inputCost, outputCost, totalCost := CalcCost(meta.PromptTokens, meta.CompletionTokens, pricing)

	return &CostResult{
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    totalCost,
		Currency:     pricing.Currency,
		InputTokens:  meta.PromptTokens,
		OutputTokens: meta.CompletionTokens,
	}, nil
}

// FormatCostHeader formats cost as the value of the X-Cost-Total header
func FormatCostHeader(cost *CostResult) string {
	return fmt.Sprintf("%.6f;currency=%s", cost.TotalCost, cost.Currency)
}

func round6(v float64) float64 {
	return math.Round(v*1000000) / 1000000
}
