package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, DefaultModel, config.Model)
	assert.InDelta(t, 0.1, config.Temperature, 0.001)
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	custom := config.WithModel("gemini-2.5-flash")

	assert.Equal(t, DefaultModel, config.Model)
	assert.Equal(t, "gemini-2.5-flash", custom.Model)
	assert.Equal(t, config.Provider, custom.Provider)
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), DefaultConfig(), "")
	assert.Error(t, err)
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"transmission":"manual"}`, `{"transmission":"manual"}`},
		{"json fence", "```json\n{\"transmission\":\"manual\"}\n```", `{"transmission":"manual"}`},
		{"bare fence", "```\n{\"make\":\"Honda\"}\n```", `{"make":"Honda"}`},
		{"whitespace", "  {\"make\":\"Honda\"}  ", `{"make":"Honda"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanJSONBlock(tc.in))
		})
	}
}
