package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/vnmchuo/budget-gateway/internal/billing"
	"github.com/vnmchuo/budget-gateway/internal/failures"
	"github.com/vnmchuo/budget-gateway/internal/pricing"
	"github.com/vnmchuo/budget-gateway/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BudgetHooks wires the gate, recorder and notifier into Hooks. Accounting
// errors stop here.
type BudgetHooks struct {
	gate     *Gate
	recorder *Recorder
	notifier *Notifier
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

var _ Hooks = (*BudgetHooks)(nil)

func New(svc billing.Service, table *pricing.Table, store failures.Store, logger *zap.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *BudgetHooks {
	return &BudgetHooks{
		gate:     NewGate(svc, table, logger, metrics),
		recorder: NewRecorder(svc, table, metrics),
		notifier: NewNotifier(store, logger, metrics),
		logger:   logger.With(zap.String("component", "hooks")),
		metrics:  metrics,
		tracer:   tracer,
	}
}

func (h *BudgetHooks) OnPreCall(ctx context.Context, call CallContext) (*billing.BudgetDecision, error) {
	ctx, span := h.tracer.Start(ctx, "hooks.pre_call", trace.WithAttributes(callAttributes(call)...))
	defer span.End()

	decision, err := h.gate.Check(ctx, call)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return decision, err
	}
	span.SetAttributes(
		attribute.Bool("budget.degraded", decision.Degraded),
		attribute.Float64("budget.remaining", decision.RemainingBudget),
	)
	return decision, nil
}

func (h *BudgetHooks) OnSuccess(ctx context.Context, call CallContext, usage *TokenUsage, start time.Time) {
	ctx, span := h.tracer.Start(ctx, "hooks.on_success", trace.WithAttributes(callAttributes(call)...))
	defer span.End()

	if err := h.recorder.Record(ctx, call, usage, start); err != nil {
		span.RecordError(err)
		h.contain(call, err)
	}
}

func (h *BudgetHooks) OnFailure(ctx context.Context, call CallContext, failure error, start time.Time) {
	ctx, span := h.tracer.Start(ctx, "hooks.on_failure", trace.WithAttributes(callAttributes(call)...))
	defer span.End()

	if err := h.notifier.Notify(ctx, call, failure, start); err != nil {
		span.RecordError(err)
		h.contain(call, err)
	}
}

func (h *BudgetHooks) contain(call CallContext, err error) {
	op := "unknown"
	var accErr *AccountingError
	if errors.As(err, &accErr) {
		op = accErr.Op
	}
	h.metrics.AccountingError(op)
	h.logger.Error("accounting error",
		zap.String("op", op),
		zap.String("request_id", call.RequestID),
		zap.String("user_id", call.UserID),
		zap.String("model", call.Model),
		zap.Error(err),
	)
}

func callAttributes(call CallContext) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("request_id", call.RequestID),
		attribute.String("tenant_id", call.TenantID),
		attribute.String("user_id", call.UserID),
		attribute.String("model", call.Model),
		attribute.String("call_type", string(call.CallType)),
	}
}
