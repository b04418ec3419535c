package providers

import (
	"fmt"

	"github.com/Zeeshanunique/agentworkflow/internal/llm"
)

// New constructs a provider from its configuration.
func New(cfg llm.ProviderConfig) (llm.Provider, error) {
	switch cfg.Name {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Name)
	}
}

// BuildRegistry constructs a provider registry from a list of provider
// configurations, in order. The first configured provider becomes the
// fallback for nodes that name none.
func BuildRegistry(configs []llm.ProviderConfig) (*llm.Registry, error) {
	registry := llm.NewRegistry()
	for _, cfg := range configs {
		p, err := New(cfg)
		if err != nil {
			return nil, err
		}
		registry.Add(p)
	}
	return registry, nil
}
