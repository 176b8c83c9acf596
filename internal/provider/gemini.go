package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultGeminiBaseURL is the default Gemini API base URL.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Gemini generateContent API.
type Gemini struct {
	apiKey  string
	baseURL string
	client  HTTPDoer
}

// NewGemini constructs a Gemini provider with explicit settings.
func NewGemini(apiKey, baseURL string, client HTTPDoer) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGeminiBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

// Name identifies the provider in errors and logs.
func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *geminiError `json:"error"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Invoke sends one prompt and returns the first candidate's text.
func (g *Gemini) Invoke(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &APIError{Provider: g.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Provider: g.Name(), Message: fmt.Sprintf("read response: %v", err)}
	}

	var decoded geminiResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != nil {
			apiErr.Code = decoded.Error.Status
			apiErr.Message = decoded.Error.Message
			if apiErr.RetryAfter == 0 {
				apiErr.RetryAfter = geminiRetryDelay(decoded.Error)
			}
		}
		return nil, apiErr
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &APIError{Provider: g.Name(), Message: fmt.Sprintf("decode response: %v", err)}
	}
	if decoded.PromptFeedback.BlockReason != "" {
		return nil, &APIError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Code:       "PROMPT_BLOCKED",
			Message:    fmt.Sprintf("prompt blocked: %s", decoded.PromptFeedback.BlockReason),
		}
	}
	if len(decoded.Candidates) == 0 {
		return nil, &APIError{Provider: g.Name(), Code: "EMPTY_RESPONSE", Message: "no candidates in response"}
	}

	candidate := decoded.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	return &Response{
		Text:         text.String(),
		Raw:          string(body),
		FinishReason: candidate.FinishReason,
	}, nil
}

// geminiRetryDelay digs the suggested delay out of a RESOURCE_EXHAUSTED
// error body, which carries it as "retry in Ns" inside the message.
func geminiRetryDelay(apiErr *geminiError) time.Duration {
	if apiErr.Status != "RESOURCE_EXHAUSTED" {
		return 0
	}
	fields := strings.Fields(apiErr.Message)
	for i, field := range fields {
		if field != "in" || i+1 >= len(fields) {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSuffix(fields[i+1], ".")); err == nil && d > 0 {
			return d
		}
	}
	return 0
}
