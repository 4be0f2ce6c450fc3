package billing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks every failure to obtain an answer from the billing
// service: transport errors, timeouts, non-2xx responses and an open breaker.
var ErrUnavailable = errors.New("billing service unavailable")

// ErrMalformedResponse is returned when a 2xx response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed billing response")

type BudgetCheck struct {
	UserID       string  `json:"user_id"`
	TenantID     string  `json:"tenant_id"`
	Model        string  `json:"model"`
	CostEstimate float64 `json:"cost_estimate"`
}

type BudgetDecision struct {
	Allowed         bool    `json:"allowed"`
	RemainingBudget float64 `json:"remaining_budget"`
	// Degraded is set on decisions made locally because the billing service
	// could not be asked.
	Degraded bool `json:"-"`
}

type UsageRecord struct {
	UserID           string    `json:"user_id"`
	TenantID         string    `json:"tenant_id"`
	Model            string    `json:"model"`
	PromptTokens     uint64    `json:"prompt_tokens"`
	CompletionTokens uint64    `json:"completion_tokens"`
	TotalTokens      uint64    `json:"total_tokens"`
	Cost             float64   `json:"cost"`
	Timestamp        time.Time `json:"timestamp"`
}

// Service is the billing API as seen by the hooks.
type Service interface {
	CheckBudget(ctx context.Context, check *BudgetCheck) (*BudgetDecision, error)
	LogUsage(ctx context.Context, record *UsageRecord) error
}

// StatusError is a non-2xx answer from the billing service.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("billing %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnavailable
}
