package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ModelCall performs the model call and returns its reported usage.
type ModelCall func(ctx context.Context) (*TokenUsage, error)

// Dispatcher sequences the hooks around a ModelCall. Post-call hooks run in
// the background so accounting never delays the response.
type Dispatcher struct {
	hooks   Hooks
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. timeout bounds each post-call hook.
func NewDispatcher(h Hooks, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		hooks:   h,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "hooks.Dispatcher")),
	}
}

// Run gates the call, runs fn and schedules exactly one post-call hook.
// Besides fn's own errors it returns a *BudgetExceededError, in which case fn
// is never called and no post-call hook runs, or an error for a panic in fn.
func (d *Dispatcher) Run(ctx context.Context, call CallContext, fn ModelCall) error {
	if _, err := d.hooks.OnPreCall(ctx, call); err != nil {
		return err
	}

	start := time.Now()
	usage, err := d.call(ctx, call, fn)

	// A cancelled call reports an error, so it is logged as a failure and
	// never charged.
	d.after(ctx, call, usage, err, start)
	return err
}

// call runs fn, turning a panic into an error so the call is still accounted
// for as a failure.
func (d *Dispatcher) call(ctx context.Context, call CallContext, fn ModelCall) (usage *TokenUsage, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("model call panicked",
				zap.String("request_id", call.RequestID),
				zap.String("panic", fmt.Sprint(r)),
			)
			usage, err = nil, fmt.Errorf("model call panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (d *Dispatcher) after(ctx context.Context, call CallContext, usage *TokenUsage, callErr error, start time.Time) {
	bg := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("post-call hook panicked",
					zap.String("request_id", call.RequestID),
					zap.String("panic", fmt.Sprint(r)),
				)
			}
		}()

		hctx, cancel := context.WithTimeout(bg, d.timeout)
		defer cancel()

		if callErr != nil {
			d.hooks.OnFailure(hctx, call, callErr, start)
			return
		}
		d.hooks.OnSuccess(hctx, call, usage, start)
	}()
}

// Wait blocks until every scheduled post-call hook has finished or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
