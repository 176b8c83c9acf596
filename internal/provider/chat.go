package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chatClient implements the OpenAI-style /chat/completions wire format that
// both Mistral and OpenRouter speak.
type chatClient struct {
	name    string
	apiKey  string
	baseURL string
	client  HTTPDoer
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *chatError `json:"error"`
}

type chatError struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Type    string          `json:"type"`
}

func (c *chatClient) invoke(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &APIError{Provider: c.name, Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Provider: c.name, Message: fmt.Sprintf("read response: %v", err)}
	}

	var decoded chatResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != nil {
			apiErr.Code = decoded.Error.Type
			apiErr.Message = decoded.Error.Message
		}
		return nil, apiErr
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &APIError{Provider: c.name, Message: fmt.Sprintf("decode response: %v", err)}
	}
	// Some gateways report errors inside a 200 body.
	if decoded.Error != nil {
		return nil, &APIError{
			Provider: c.name,
			Code:     decoded.Error.Type,
			Message:  decoded.Error.Message,
		}
	}
	if len(decoded.Choices) == 0 {
		return nil, &APIError{Provider: c.name, Code: "EMPTY_RESPONSE", Message: "no choices in response"}
	}

	choice := decoded.Choices[0]
	return &Response{
		Text:         choice.Message.Content,
		Raw:          string(body),
		FinishReason: choice.FinishReason,
	}, nil
}
