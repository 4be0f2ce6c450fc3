package hooks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnmchuo/budget-gateway/internal/billing"
	"github.com/vnmchuo/budget-gateway/internal/failures"
	"github.com/vnmchuo/budget-gateway/internal/pricing"
	"github.com/vnmchuo/budget-gateway/internal/telemetry"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Mock billing service
type mockBilling struct {
	mu              sync.Mutex
	checkBudgetFunc func(ctx context.Context, check *billing.BudgetCheck) (*billing.BudgetDecision, error)
	logUsageFunc    func(ctx context.Context, record *billing.UsageRecord) error
	checks          []*billing.BudgetCheck
	usage           []*billing.UsageRecord
}

func (m *mockBilling) CheckBudget(ctx context.Context, check *billing.BudgetCheck) (*billing.BudgetDecision, error) {
	m.mu.Lock()
	m.checks = append(m.checks, check)
	m.mu.Unlock()

	if m.checkBudgetFunc != nil {
		return m.checkBudgetFunc(ctx, check)
	}
	return &billing.BudgetDecision{Allowed: true, RemainingBudget: 100}, nil
}

func (m *mockBilling) LogUsage(ctx context.Context, record *billing.UsageRecord) error {
	m.mu.Lock()
	m.usage = append(m.usage, record)
	m.mu.Unlock()

	if m.logUsageFunc != nil {
		return m.logUsageFunc(ctx, record)
	}
	return nil
}

func (m *mockBilling) counts() (checks, usage int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.checks), len(m.usage)
}

func (m *mockBilling) usageRecords() []*billing.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*billing.UsageRecord(nil), m.usage...)
}

// Mock failure store
type mockFailureStore struct {
	mu         sync.Mutex
	recordFunc func(ctx context.Context, e *failures.Event) error
	events     []*failures.Event
}

func (m *mockFailureStore) Record(ctx context.Context, e *failures.Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()

	if m.recordFunc != nil {
		return m.recordFunc(ctx, e)
	}
	return nil
}

func (m *mockFailureStore) ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*failures.Event, error) {
	return nil, nil
}

func (m *mockFailureStore) CountByTenant(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	return 0, nil
}

func (m *mockFailureStore) recorded() []*failures.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*failures.Event(nil), m.events...)
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestHooks(t *testing.T, svc billing.Service, store failures.Store) (*BudgetHooks, *observer.ObservedLogs, *prometheus.Registry) {
	t.Helper()
	logger, logs := observedLogger()
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	h := New(svc, pricing.DefaultTable(), store, logger, metrics, noop.NewTracerProvider().Tracer("test"))
	return h, logs, registry
}

func testCall(tenantID, userID, model string) CallContext {
	return CallContext{
		RequestID: "req-" + tenantID + "-" + userID,
		UserID:    userID,
		TenantID:  tenantID,
		Model:     model,
		CallType:  CallChatCompletion,
	}
}
