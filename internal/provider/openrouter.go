package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// defaultOpenRouterBaseURL is the default OpenRouter API base URL.
const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter calls the OpenRouter chat completions API, which fronts models
// addressed as "vendor/model".
type OpenRouter struct {
	chat chatClient
}

// NewOpenRouter constructs an OpenRouter provider with explicit settings.
func NewOpenRouter(apiKey, baseURL string, client HTTPDoer) (*OpenRouter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouter{chat: chatClient{
		name:    "openrouter",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}}, nil
}

// Name identifies the provider in errors and logs.
func (o *OpenRouter) Name() string { return "openrouter" }

// Invoke sends one prompt and returns the first choice's text.
func (o *OpenRouter) Invoke(ctx context.Context, req Request) (*Response, error) {
	return o.chat.invoke(ctx, req)
}
