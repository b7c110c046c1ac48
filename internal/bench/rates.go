package bench

import "strings"

// Rate holds USD per one million tokens for a model.
type Rate struct {
	Input  float64 `koanf:"input" json:"input"`
	Output float64 `koanf:"output" json:"output"`
}

// DefaultRates covers the models the benchmark ships with. Config rates
// layer on top; a zero rate means "unknown", not "free".
var DefaultRates = map[string]Rate{
	"zai-org/glm-4.6": {Input: 0.60, Output: 0.20},
	"gpt-4o-mini":     {Input: 0.15, Output: 0.60},
	"gpt-4o":          {Input: 2.50, Output: 10.00},
	"gpt-3.5-turbo":   {Input: 0.50, Output: 1.50},
}

// LookupRate resolves the rate for a model, preferring overrides and falling
// back to the built-in table. Model matching is case-insensitive.
func LookupRate(overrides map[string]Rate, model string) Rate {
	key := strings.ToLower(model)
	if overrides != nil {
		if rate, ok := overrides[key]; ok {
			return rate
		}
	}
	return DefaultRates[key]
}

// EstimateCost converts token counts into a USD cost under the given rate.
func EstimateCost(promptTokens, completionTokens float64, rate Rate) float64 {
	return (promptTokens*rate.Input + completionTokens*rate.Output) / 1_000_000
}
