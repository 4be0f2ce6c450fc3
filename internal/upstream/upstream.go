// Package upstream calls an OpenAI-compatible chat completions endpoint.
package upstream

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned while the upstream circuit breaker is open.
var ErrUnavailable = errors.New("upstream unavailable")

type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	User        string    `json:"user,omitempty"`
}

type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

type Response struct {
	ID           string
	Content      string
	FinishReason string
	Model        string
	Usage        Usage
}

// Usage is the token accounting reported by the upstream. Absent fields are 0.
type Usage struct {
	PromptTokens     uint64 `json:"prompt_tokens"`
	CompletionTokens uint64 `json:"completion_tokens"`
	TotalTokens      uint64 `json:"total_tokens"`
}

// StatusError is a non-200 reply from the upstream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream api error (status %d): %s", e.StatusCode, e.Body)
}

type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
