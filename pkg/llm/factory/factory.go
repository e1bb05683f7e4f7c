package factory

import (
	"fmt"
	"strings"

	"design-analysis-be/pkg/llm"
	"design-analysis-be/pkg/llm/anthropic"
	"design-analysis-be/pkg/llm/ollama"
	"design-analysis-be/pkg/llm/openai"
)

// Credentials carries per-provider keys and endpoints.
type Credentials struct {
	OpenAIKey     string
	OpenAIBaseURL string
	AnthropicKey  string
	AnthropicURL  string
	OllamaBaseURL string
}

func NewLLMProvider(providerType, modelName string, creds Credentials) (llm.LLMProvider, []llm.Capability, error) {
	switch providerType {
	case "ollama":
		return ollama.NewOllamaProvider(creds.OllamaBaseURL, modelName), []llm.Capability{llm.CapabilityText}, nil
	case "openai":
		if creds.OpenAIKey == "" {
			return nil, nil, fmt.Errorf("openai backend requires an api key")
		}
		return openai.NewProvider(creds.OpenAIKey, creds.OpenAIBaseURL, modelName),
			[]llm.Capability{llm.CapabilityText, llm.CapabilityVision}, nil
	case "anthropic":
		if creds.AnthropicKey == "" {
			return nil, nil, fmt.Errorf("anthropic backend requires an api key")
		}
		return anthropic.NewProvider(creds.AnthropicKey, creds.AnthropicURL, modelName),
			[]llm.Capability{llm.CapabilityText, llm.CapabilityVision}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// NewChain builds an ordered backend chain from "provider:model" specs.
func NewChain(specs []string, creds Credentials) (*llm.Chain, error) {
	backends := make([]llm.Backend, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		providerType, model, _ := strings.Cut(spec, ":")
		provider, caps, err := NewLLMProvider(strings.ToLower(providerType), model, creds)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", spec, err)
		}
		backends = append(backends, llm.Backend{Name: spec, Provider: provider, Capabilities: caps})
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", llm.ErrNoCapableBackend)
	}
	return llm.NewChain(backends...), nil
}
