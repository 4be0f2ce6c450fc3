package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	checkBudgetPath = "/api/check-budget"
	usageLogPath    = "/api/usage/log"

	maxErrorBody = 512
)

type Options struct {
	BaseURL            string
	APIKey             string
	CheckTimeout       time.Duration // default: 3s
	AccountingTimeout  time.Duration // default: 10s
	BreakerMaxFailures uint32        // consecutive failures before the breaker opens, default: 5
	BreakerCooldown    time.Duration // default: 30s
}

// Client talks to the external billing API. Each endpoint has its own circuit
// breaker so a failing usage log does not short-circuit budget checks.
type Client struct {
	baseURL      string
	apiKey       string
	checkClient  *http.Client
	usageClient  *http.Client
	checkBreaker *gobreaker.CircuitBreaker
	usageBreaker *gobreaker.CircuitBreaker
}

func NewClient(opts Options) *Client {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 3 * time.Second
	}
	if opts.AccountingTimeout <= 0 {
		opts.AccountingTimeout = 10 * time.Second
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		checkClient:  &http.Client{Timeout: opts.CheckTimeout},
		usageClient:  &http.Client{Timeout: opts.AccountingTimeout},
		checkBreaker: newBreaker("billing.check-budget", opts),
		usageBreaker: newBreaker("billing.usage-log", opts),
	}
}

func newBreaker(name string, opts Options) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		// Only outages trip the breaker; a garbled 2xx body is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	})
}

// budgetDecisionWire keeps an absent or null "allowed" distinguishable from
// an explicit denial.
type budgetDecisionWire struct {
	Allowed         *bool   `json:"allowed"`
	RemainingBudget float64 `json:"remaining_budget"`
}

func (c *Client) CheckBudget(ctx context.Context, check *BudgetCheck) (*BudgetDecision, error) {
	result, err := c.checkBreaker.Execute(func() (interface{}, error) {
		body, err := c.post(ctx, c.checkClient, checkBudgetPath, check)
		if err != nil {
			return nil, err
		}

		var wire budgetDecisionWire
		if err := json.Unmarshal(body, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if wire.Allowed == nil {
			return nil, fmt.Errorf("%w: missing allowed field", ErrMalformedResponse)
		}
		return &BudgetDecision{Allowed: *wire.Allowed, RemainingBudget: wire.RemainingBudget}, nil
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return result.(*BudgetDecision), nil
}

func (c *Client) LogUsage(ctx context.Context, record *UsageRecord) error {
	_, err := c.usageBreaker.Execute(func() (interface{}, error) {
		return c.post(ctx, c.usageClient, usageLogPath, record)
	})
	return breakerErr(err)
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrUnavailable, path, err)
	}
	return respBody, nil
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
