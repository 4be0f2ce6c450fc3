package failures

import (
	"context"
	"time"
)

// Event is one failed model call. Failed calls are never charged; events only
// feed monitoring.
type Event struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Model     string    `json:"model"`
	CallType  string    `json:"call_type"`
	Reason    string    `json:"reason"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Record(ctx context.Context, event *Event) error
	ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*Event, error)
	CountByTenant(ctx context.Context, tenantID string, from, to time.Time) (int64, error)
}
