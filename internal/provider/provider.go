// Package provider holds the LLM API clients used to run trials. Each
// provider takes a fully built prompt and returns the model's text; retry
// policy lives with the caller, classification of failures lives here.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is one generation call.
type Request struct {
	Model           string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Response carries the model's reply. Raw preserves the unparsed body for
// the results log so extraction bugs can be fixed after the fact.
type Response struct {
	Text         string
	Raw          string
	FinishReason string
}

// Provider is a single LLM backend.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// APIError is a failed call with enough detail to decide whether retrying
// can help. StatusCode 0 means the request never got an HTTP response.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Code == "":
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	case e.Code == "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: HTTP %d %s: %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
}

// Retryable reports whether another attempt could plausibly succeed.
// Timeouts, rate limits, server errors, and network failures qualify;
// auth and bad-request responses do not.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// Retryable classifies any error from a provider call. Cancellation is not
// retryable: it means the run is shutting down, not that the call failed.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Transport-level failures without an APIError wrapper.
	return true
}

// retryAfter parses a Retry-After header, accepting both delay-seconds and
// HTTP-date forms.
func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
