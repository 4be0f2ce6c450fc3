package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	extratelimit "github.com/vnmchuo/ratelimiter"
)

type recordingStore struct {
	keys    []string
	ns      []int
	allowed bool
	err     error
}

func (s *recordingStore) AllowN(ctx context.Context, key string, n int) (*extratelimit.Result, error) {
	s.keys = append(s.keys, key)
	s.ns = append(s.ns, n)
	return &extratelimit.Result{Allowed: s.allowed}, s.err
}

func (s *recordingStore) Allow(ctx context.Context, key string) (*extratelimit.Result, error) {
	return s.AllowN(ctx, key, 1)
}

func (s *recordingStore) Status(ctx context.Context, key string) (*extratelimit.Result, error) {
	s.keys = append(s.keys, key)
	return &extratelimit.Result{Allowed: s.allowed}, s.err
}

func TestAllow_KeysByTenantAndUser(t *testing.T) {
	store := &recordingStore{allowed: true}
	l := NewTestLimiter(store)

	ok, err := l.Allow(context.Background(), "tenant-a", "alice", 500)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _ = l.Allow(context.Background(), "tenant-b", "alice", 0)

	assert.Equal(t, []string{
		"ratelimit:tenant:tenant-a:user:alice",
		"ratelimit:tenant:tenant-b:user:alice",
	}, store.keys)
	assert.Equal(t, []int{500, 1}, store.ns)
}

func TestAllow_Error(t *testing.T) {
	l := NewTestLimiter(&recordingStore{allowed: true, err: errors.New("redis down")})

	ok, err := l.Allow(context.Background(), "t", "u", 10)
	assert.Error(t, err)
	assert.False(t, ok)
}
