package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vnmchuo/budget-gateway/internal/failures"
	"go.uber.org/zap/zapcore"
)

func TestNotifier_LogsAndStores(t *testing.T) {
	store := &mockFailureStore{}
	logger, logs := observedLogger()
	n := NewNotifier(store, logger, nil)

	call := testCall("t1", "u1", "gpt-4o")
	err := n.Notify(context.Background(), call, errors.New("upstream returned 500"), time.Now())
	require.NoError(t, err)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "gpt-4o", fields["model"])
	assert.Equal(t, "upstream returned 500", fields["failure"])

	events := store.recorded()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, call.RequestID, events[0].RequestID)
	assert.Equal(t, "t1", events[0].TenantID)
	assert.Equal(t, "chat-completion", events[0].CallType)
	assert.Equal(t, "upstream returned 500", events[0].Reason)
}

func TestNotifier_NilFailure(t *testing.T) {
	logger, logs := observedLogger()
	n := NewNotifier(nil, logger, nil)

	require.NoError(t, n.Notify(context.Background(), testCall("t1", "u1", "m"), nil, time.Now()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "unknown failure", logs.All()[0].ContextMap()["failure"])
}

func TestNotifier_StoreErrorIsTyped(t *testing.T) {
	store := &mockFailureStore{
		recordFunc: func(ctx context.Context, e *failures.Event) error {
			return errors.New("db down")
		},
	}
	logger, _ := observedLogger()
	n := NewNotifier(store, logger, nil)

	err := n.Notify(context.Background(), testCall("t1", "u1", "m"), errors.New("boom"), time.Now())

	var accErr *AccountingError
	require.True(t, errors.As(err, &accErr))
	assert.Equal(t, OpFailureLog, accErr.Op)
}
