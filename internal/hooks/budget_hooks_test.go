package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vnmchuo/budget-gateway/internal/billing"
	"go.uber.org/zap/zapcore"
)

func TestOnSuccess_ContainsAccountingError(t *testing.T) {
	svc := &mockBilling{
		logUsageFunc: func(ctx context.Context, record *billing.UsageRecord) error {
			return errors.New("connection reset")
		},
	}
	h, logs, registry := newTestHooks(t, svc, nil)

	assert.NotPanics(t, func() {
		h.OnSuccess(context.Background(), testCall("t1", "u1", "gpt-4o"), &TokenUsage{PromptTokens: 10}, time.Now())
	})

	entries := logs.FilterMessage("accounting error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, OpUsageLog, entries[0].ContextMap()["op"])
	count, err := testutil.GatherAndCount(registry, "budget_gateway_accounting_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOnFailure_NeverChargesOrChecksBudget(t *testing.T) {
	svc := &mockBilling{}
	store := &mockFailureStore{}
	h, _, _ := newTestHooks(t, svc, store)

	h.OnFailure(context.Background(), testCall("t1", "u1", "gpt-4o"), errors.New("timeout"), time.Now())

	checks, usage := svc.counts()
	assert.Zero(t, checks)
	assert.Zero(t, usage)
	assert.Len(t, store.recorded(), 1)
}

func TestOnPreCall_ReturnsDenial(t *testing.T) {
	svc := &mockBilling{
		checkBudgetFunc: func(ctx context.Context, check *billing.BudgetCheck) (*billing.BudgetDecision, error) {
			return &billing.BudgetDecision{Allowed: false, RemainingBudget: 0.42}, nil
		},
	}
	h, _, _ := newTestHooks(t, svc, nil)

	_, err := h.OnPreCall(context.Background(), testCall("t1", "u1", "gpt-4o"))
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.Contains(t, err.Error(), "0.42")
}
