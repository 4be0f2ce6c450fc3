package failures

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO call_failures (id, request_id, tenant_id, user_id, model, call_type, reason, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query,
		e.ID, e.RequestID, e.TenantID, e.UserID, e.Model, e.CallType, e.Reason, e.LatencyMs,
	).Scan(&e.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record call failure: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*Event, error) {
	query := `
		SELECT id, request_id, tenant_id, user_id, model, call_type, reason, latency_ms, created_at
		FROM call_failures
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query call failures: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.ID, &e.RequestID, &e.TenantID, &e.UserID, &e.Model,
			&e.CallType, &e.Reason, &e.LatencyMs, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call failure: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call failures: %w", err)
	}

	return events, nil
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM call_failures
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
	`
	var n int64
	if err := s.db.QueryRow(ctx, query, tenantID, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count call failures: %w", err)
	}
	return n, nil
}
