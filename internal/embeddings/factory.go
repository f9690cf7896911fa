// ABOUTME: Provider factory selecting an embedding backend by name.
// ABOUTME: Supports local, openai, gemini and tei providers.
package embeddings

import (
	"fmt"
	"strings"
)

// Provider names accepted by NewProvider.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderTEI    = "tei"
)

// ProviderNames lists the supported provider names.
var ProviderNames = []string{ProviderLocal, ProviderOpenAI, ProviderGemini, ProviderTEI}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Name      string
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
}

// IsValidProvider returns true if the given provider name is supported.
func IsValidProvider(name string) bool {
	for _, n := range ProviderNames {
		if n == name {
			return true
		}
	}
	return false
}

// NewProvider creates an uninitialized provider. Callers must run Init
// (directly or through the worker) before embedding.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", ProviderLocal:
		return NewHashEmbedder(cfg.Dimension), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case ProviderTEI:
		return NewTEIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: %s)", cfg.Name, strings.Join(ProviderNames, ", "))
	}
}
