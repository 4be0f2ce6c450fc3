// Package hooks enforces tenant budgets around model calls and accounts for
// their usage.
//
// A call passes through three hooks: OnPreCall asks the billing service
// whether the call may proceed, then exactly one of OnSuccess or OnFailure
// runs once the call has finished. Only an explicit budget denial can stop a
// call; billing outages and accounting errors are logged and absorbed.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vnmchuo/budget-gateway/internal/billing"
)

type CallType string

const CallChatCompletion CallType = "chat-completion"

// CallContext identifies one model call. It is read-only once built.
type CallContext struct {
	RequestID string
	UserID    string
	TenantID  string
	Model     string
	CallType  CallType
}

// TokenUsage is the usage reported by the model. Missing counts are zero.
type TokenUsage struct {
	PromptTokens     uint64 `json:"prompt_tokens"`
	CompletionTokens uint64 `json:"completion_tokens"`
	TotalTokens      uint64 `json:"total_tokens"`
}

// Hooks is what the call-dispatch path invokes around a model call.
type Hooks interface {
	// OnPreCall returns a *BudgetExceededError when the call must not proceed.
	OnPreCall(ctx context.Context, call CallContext) (*billing.BudgetDecision, error)
	OnSuccess(ctx context.Context, call CallContext, usage *TokenUsage, start time.Time)
	OnFailure(ctx context.Context, call CallContext, failure error, start time.Time)
}

var ErrBudgetExceeded = errors.New("budget exceeded")

// BudgetExceededError is the billing service's explicit denial of a call.
type BudgetExceededError struct {
	UserID    string
	Remaining float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("Budget exceeded for user %s. Remaining: $%.2f", e.UserID, e.Remaining)
}

func (e *BudgetExceededError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// Accounting operations.
const (
	OpUsageLog   = "usage_log"
	OpFailureLog = "failure_log"
)

var ErrIncompleteRecord = errors.New("incomplete record")

// AccountingError is a failure to build or deliver an accounting record. It
// never reaches the end user.
type AccountingError struct {
	Op  string
	Err error
}

func (e *AccountingError) Error() string {
	return fmt.Sprintf("accounting %s: %v", e.Op, e.Err)
}

func (e *AccountingError) Unwrap() error {
	return e.Err
}
