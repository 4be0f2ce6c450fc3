package hooks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vnmchuo/budget-gateway/internal/failures"
	"github.com/vnmchuo/budget-gateway/internal/telemetry"
	"go.uber.org/zap"
)

// Notifier logs failed calls. It never talks to billing: a failed call is not
// charged.
type Notifier struct {
	store   failures.Store
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewNotifier creates a Notifier. store may be nil, in which case failures are
// only logged.
func NewNotifier(store failures.Store, logger *zap.Logger, metrics *telemetry.Metrics) *Notifier {
	return &Notifier{
		store:   store,
		logger:  logger.With(zap.String("component", "hooks.Notifier")),
		metrics: metrics,
	}
}

func (n *Notifier) Notify(ctx context.Context, call CallContext, failure error, start time.Time) error {
	reason := "unknown failure"
	if failure != nil {
		reason = failure.Error()
	}
	latency := time.Since(start)

	n.logger.Error("model call failed",
		zap.String("request_id", call.RequestID),
		zap.String("user_id", call.UserID),
		zap.String("tenant_id", call.TenantID),
		zap.String("model", call.Model),
		zap.String("failure", reason),
		zap.Duration("latency", latency),
	)
	n.metrics.CallFailure(call.Model)

	if n.store == nil {
		return nil
	}

	event := &failures.Event{
		ID:        uuid.New().String(),
		RequestID: call.RequestID,
		TenantID:  call.TenantID,
		UserID:    call.UserID,
		Model:     call.Model,
		CallType:  string(call.CallType),
		Reason:    reason,
		LatencyMs: latency.Milliseconds(),
	}
	if err := n.store.Record(ctx, event); err != nil {
		return &AccountingError{Op: OpFailureLog, Err: err}
	}
	return nil
}
