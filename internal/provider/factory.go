package provider

import (
	"fmt"
	"os"
	"strings"

	"permutest/internal/spec"
)

// FromConfig builds the named provider, reading its API key from the
// environment variable the config points at. A nil client falls back to
// http.DefaultClient inside each constructor.
func FromConfig(name string, entry spec.ProviderConfig, client HTTPDoer) (Provider, error) {
	apiKey := strings.TrimSpace(os.Getenv(entry.APIKeyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("%s is required for provider %q", entry.APIKeyEnv, name)
	}
	switch name {
	case "gemini":
		return NewGemini(apiKey, entry.BaseURL, client)
	case "mistral":
		return NewMistral(apiKey, entry.BaseURL, client)
	case "openrouter":
		return NewOpenRouter(apiKey, entry.BaseURL, client)
	default:
		return nil, fmt.Errorf("unsupported provider %q", name)
	}
}
