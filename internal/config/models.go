package config

// Tier names for the two model profiles the router chooses between.
const (
	TierSmall = "small"
	TierLarge = "large"
)

type ModelsConfig struct {
	Small ModelProfile `yaml:"small"`
	Large ModelProfile `yaml:"large"`
}

// ModelProfile is the static description of one model tier. Pricing is
// USD per 1K tokens. Immutable at runtime except through config reload.
type ModelProfile struct {
	Name             string  `yaml:"name"`
	InputCostPerK    float64 `yaml:"input_cost_per_k"`
	OutputCostPerK   float64 `yaml:"output_cost_per_k"`
	MaxContextTokens int     `yaml:"max_context_tokens"`
}

// Profile returns the profile for a tier name, defaulting to the small tier.
func (m *ModelsConfig) Profile(tier string) ModelProfile {
	if tier == TierLarge {
		return m.Large
	}
	return m.Small
}

// ByName resolves a model identifier to its profile. Unknown identifiers
// fall back to large-tier pricing so cost is never underestimated.
func (m *ModelsConfig) ByName(name string) ModelProfile {
	switch name {
	case m.Small.Name:
		return m.Small
	default:
		return m.Large
	}
}

// DefaultModels mirrors the Mistral small/large pricing the bot shipped with.
func DefaultModels() *ModelsConfig {
	return &ModelsConfig{
		Small: ModelProfile{
			Name:             "mistral-small-latest",
			InputCostPerK:    0.0002,
			OutputCostPerK:   0.0006,
			MaxContextTokens: 32000,
		},
		Large: ModelProfile{
			Name:             "mistral-large-latest",
			InputCostPerK:    0.002,
			OutputCostPerK:   0.006,
			MaxContextTokens: 128000,
		},
	}
}
