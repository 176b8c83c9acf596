package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// defaultMistralBaseURL is the default Mistral API base URL.
const defaultMistralBaseURL = "https://api.mistral.ai/v1"

// Mistral calls the Mistral chat completions API.
type Mistral struct {
	chat chatClient
}

// NewMistral constructs a Mistral provider with explicit settings.
func NewMistral(apiKey, baseURL string, client HTTPDoer) (*Mistral, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultMistralBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Mistral{chat: chatClient{
		name:    "mistral",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}}, nil
}

// Name identifies the provider in errors and logs.
func (m *Mistral) Name() string { return "mistral" }

// Invoke sends one prompt and returns the first choice's text.
func (m *Mistral) Invoke(ctx context.Context, req Request) (*Response, error) {
	return m.chat.invoke(ctx, req)
}
