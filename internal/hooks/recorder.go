package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/vnmchuo/budget-gateway/internal/billing"
	"github.com/vnmchuo/budget-gateway/internal/pricing"
	"github.com/vnmchuo/budget-gateway/internal/telemetry"
)

// Recorder reports the usage and cost of a successful call.
type Recorder struct {
	billing billing.Service
	pricing *pricing.Table
	metrics *telemetry.Metrics
}

func NewRecorder(svc billing.Service, table *pricing.Table, metrics *telemetry.Metrics) *Recorder {
	return &Recorder{billing: svc, pricing: table, metrics: metrics}
}

// Record sends one usage record. start becomes the record's timestamp.
func (r *Recorder) Record(ctx context.Context, call CallContext, usage *TokenUsage, start time.Time) error {
	var u TokenUsage
	if usage != nil {
		u = *usage
	}

	if call.TenantID == "" || call.UserID == "" || call.Model == "" {
		return &AccountingError{
			Op:  OpUsageLog,
			Err: fmt.Errorf("%w: tenant=%q user=%q model=%q", ErrIncompleteRecord, call.TenantID, call.UserID, call.Model),
		}
	}

	record := &billing.UsageRecord{
		UserID:           call.UserID,
		TenantID:         call.TenantID,
		Model:            call.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Cost:             r.pricing.PriceTokens(call.Model, u.PromptTokens, u.CompletionTokens),
		Timestamp:        start.UTC(),
	}

	if err := r.billing.LogUsage(ctx, record); err != nil {
		return &AccountingError{Op: OpUsageLog, Err: err}
	}

	r.metrics.Usage(call.Model, record.PromptTokens, record.CompletionTokens, record.Cost)
	return nil
}
