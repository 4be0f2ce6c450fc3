package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	extratelimit "github.com/vnmchuo/ratelimiter"
)

// Limiter enforces a tokens-per-minute limit per tenant and user on top of
// github.com/vnmchuo/ratelimiter.
type Limiter struct {
	store extratelimit.Limiter
}

func NewLimiter(rdb *redis.Client, defaultTPM int64) *Limiter {
	store := extratelimit.NewRedisStore(rdb,
		extratelimit.WithLimit(int(defaultTPM)),
		extratelimit.WithWindow(time.Minute),
	)
	return &Limiter{store: store}
}

func NewTestLimiter(store extratelimit.Limiter) *Limiter {
	return &Limiter{store: store}
}

// Key returns the bucket key for a tenant's user.
func Key(tenantID, userID string) string {
	return fmt.Sprintf("ratelimit:tenant:%s:user:%s", tenantID, userID)
}

func (l *Limiter) Allow(ctx context.Context, tenantID, userID string, tokens int) (bool, error) {
	if tokens <= 0 {
		tokens = 1
	}
	res, err := l.store.AllowN(ctx, Key(tenantID, userID), tokens)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}
