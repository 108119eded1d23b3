package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
)

func TestCalcCost(t *testing.T) {
	pricing := registry.Pricing{Currency: "USD", InputPer1K: 0.0015, OutputPer1K: 0.006}

	tests := []struct {
		name             string
		promptTokens     int
		completionTokens int
		inputCost        float64
		outputCost       float64
		totalCost        float64
	}{
		{name: "basic calculation", promptTokens: 1000, completionTokens: 500, inputCost: 0.0015, outputCost: 0.003, totalCost: 0.0045},
		{name: "zero tokens", promptTokens: 0, completionTokens: 0},
		{name: "single output token", promptTokens: 0, completionTokens: 1, outputCost: 0.000006, totalCost: 0.000006},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out, total := CalcCost(tt.promptTokens, tt.completionTokens, pricing)
			assert.InDelta(t, tt.inputCost, in, 1e-9)
			assert.InDelta(t, tt.outputCost, out, 1e-9)
			assert.InDelta(t, tt.totalCost, total, 1e-9)
		})
	}
}

func TestCalcCostForResponse(t *testing.T) {
	calc := NewCalculator(registry.GetDefaultRegistry())

	result, err := calc.CalcCostForResponse(prompt.ResponseMetadata{
		Provider:         "openai",
		Model:            "gpt-4o",
		PromptTokens:     2000,
		CompletionTokens: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", result.Currency)
	assert.InDelta(t, 0.01, result.InputCost, 1e-9)
	assert.InDelta(t, 0.015, result.OutputCost, 1e-9)
	assert.InDelta(t, 0.025, result.TotalCost, 1e-9)
	assert.Equal(t, 2000, result.InputTokens)
	assert.Equal(t, 1000, result.OutputTokens)
}

func TestCalcCostForResponseUnknown(t *testing.T) {
	calc := NewCalculator(registry.GetDefaultRegistry())

	_, err := calc.CalcCostForResponse(prompt.ResponseMetadata{Provider: "nope", Model: "gpt-4o"})
	assert.Error(t, err)

	_, err = calc.CalcCostForResponse(prompt.ResponseMetadata{Provider: "openai", Model: "gpt-9"})
	assert.Error(t, err)
}

func TestFormatCostHeader(t *testing.T) {
	header := FormatCostHeader(&CostResult{TotalCost: 0.0045, Currency: "USD"})
	assert.Equal(t, "0.004500;currency=USD", header)
}
