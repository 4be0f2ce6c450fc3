package hooks

import (
	"context"
	"errors"

	"github.com/vnmchuo/budget-gateway/internal/billing"
	"github.com/vnmchuo/budget-gateway/internal/pricing"
	"github.com/vnmchuo/budget-gateway/internal/telemetry"
	"go.uber.org/zap"
)

// Gate decides whether a call may proceed. It fails open on billing outages
// and closed on an explicit denial.
type Gate struct {
	billing billing.Service
	pricing *pricing.Table
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

func NewGate(svc billing.Service, table *pricing.Table, logger *zap.Logger, metrics *telemetry.Metrics) *Gate {
	return &Gate{
		billing: svc,
		pricing: table,
		logger:  logger.With(zap.String("component", "hooks.Gate")),
		metrics: metrics,
	}
}

func (g *Gate) Check(ctx context.Context, call CallContext) (*billing.BudgetDecision, error) {
	estimate := g.pricing.Estimate(call.Model)

	decision, err := g.billing.CheckBudget(ctx, &billing.BudgetCheck{
		UserID:       call.UserID,
		TenantID:     call.TenantID,
		Model:        call.Model,
		CostEstimate: estimate.Amount,
	})
	if err == nil && decision == nil {
		err = billing.ErrMalformedResponse
	}

	switch {
	case err == nil && decision.Allowed:
		g.metrics.GateDecision(telemetry.OutcomeAllowed)
		return decision, nil

	case err == nil:
		g.metrics.GateDecision(telemetry.OutcomeDenied)
		g.logger.Info("budget exceeded, rejecting call",
			zap.String("request_id", call.RequestID),
			zap.String("user_id", call.UserID),
			zap.String("tenant_id", call.TenantID),
			zap.String("model", call.Model),
			zap.Float64("remaining_budget", decision.RemainingBudget),
		)
		return decision, &BudgetExceededError{UserID: call.UserID, Remaining: decision.RemainingBudget}

	case isNetworkFailure(err):
		g.metrics.GateDecision(telemetry.OutcomeFailOpen)
		g.logger.Warn("budget check failed, allowing call",
			zap.String("request_id", call.RequestID),
			zap.String("user_id", call.UserID),
			zap.String("model", call.Model),
			zap.Error(err),
		)
		return &billing.BudgetDecision{Allowed: true, Degraded: true}, nil

	default:
		g.metrics.GateDecision(telemetry.OutcomeAnomaly)
		g.logger.Error("unexpected budget check result, allowing call",
			zap.String("request_id", call.RequestID),
			zap.String("user_id", call.UserID),
			zap.String("model", call.Model),
			zap.Error(err),
		)
		return &billing.BudgetDecision{Allowed: true, Degraded: true}, nil
	}
}

func isNetworkFailure(err error) bool {
	return errors.Is(err, billing.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
