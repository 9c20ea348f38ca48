package llm

// Provider represents a classification-model provider.
type Provider string

// Provider constants define supported providers.
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// DefaultModel is the model used for listing-attribute classification.
// Extraction from short titles is a simple task; the lite tier is plenty.
const DefaultModel = "gemini-2.5-flash-lite"

// Config holds the model configuration for classifier calls.
type Config struct {
	Provider    Provider
	Model       string
	Temperature float32
}

// DefaultConfig returns the default configuration: Gemini's lite model at
// low temperature for consistent structured output.
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderGemini,
		Model:       DefaultModel,
		Temperature: 0.1,
	}
}

// WithModel returns a copy of the config with a different model name.
func (c *Config) WithModel(model string) *Config {
	out := *c
	out.Model = model
	return &out
}
