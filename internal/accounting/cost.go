// Package accounting computes per-request cost and keeps running usage
// statistics for the engine.
package accounting

import "github.com/supra-heroes/zorgbot/internal/config"

// Cost returns the USD cost of one upstream call. Pricing is per 1K tokens.
// No rounding happens here; display formatting rounds, accumulation never
// does.
func Cost(profile config.ModelProfile, inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)/1000)*profile.InputCostPerK +
		(float64(outputTokens)/1000)*profile.OutputCostPerK
}
