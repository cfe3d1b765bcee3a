package provider

import (
	"fmt"
	"strings"

	"github.com/workpal/workpal/internal/config"
)

// ParseModelString splits a "provider/model" string into provider ID
// and model name. For OpenRouter, the format is
// "openrouter/vendor/model" (three segments).
func ParseModelString(s string) (providerID, modelName string) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 {
		return "", s
	}
	providerID = strings.ToLower(parts[0])
	modelName = parts[1]
	return
}

// Resolve creates the LLMProvider selected by the configuration.
// Resolution order:
//  1. model.name with a "provider/" prefix
//  2. providers.default with the bare model name
func Resolve(cfg *config.Config) (LLMProvider, error) {
	provID, model := ParseModelString(cfg.Model.Name)
	if provID == "" {
		provID = strings.ToLower(strings.TrimSpace(cfg.Providers.Default))
	}
	return buildProvider(cfg, provID, model)
}

// buildProvider constructs a provider from its canonical ID and model name.
func buildProvider(cfg *config.Config, providerID, model string) (LLMProvider, error) {
	switch providerID {
	case "", "openrouter":
		key := cfg.Providers.OpenRouter.APIKey
		base := cfg.Providers.OpenRouter.APIBase
		if key == "" {
			return nil, &ProviderError{Provider: "openrouter", Hint: "set providers.openrouter.apiKey in config or WORKPAL_OPENROUTER_API_KEY"}
		}
		if base == "" {
			base = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIProvider(key, base, model), nil

	case "gemini", "google":
		key := cfg.Providers.Gemini.APIKey
		if key == "" {
			return nil, &ProviderError{Provider: "gemini", Hint: "set providers.gemini.apiKey in config or WORKPAL_GEMINI_API_KEY"}
		}
		return NewGeminiProvider(key, model), nil

	default:
		return nil, &ProviderError{Provider: providerID, Hint: fmt.Sprintf("unknown provider ID %q — supported: openrouter, gemini", providerID)}
	}
}

// ProviderError is returned when a provider cannot be constructed.
type ProviderError struct {
	Provider string
	Hint     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Hint)
}
