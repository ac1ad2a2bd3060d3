package invoker

import (
	"context"
	"sync"

	"callbridge/pkg/models"
)

// Call tracks one non-blocking invocation through the full pipeline
// (resolve, dispatch, decode). Completion fires exactly once on an
// invoker-owned goroutine.
type Call struct {
	mu        sync.Mutex
	done      chan struct{}
	out       *models.Outcome
	err       error
	completed bool
	cancelled bool
	cont      func(*models.Outcome, error)
	cancel    context.CancelFunc
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

func (c *Call) complete(out *models.Outcome, err error) {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return
	}
	c.completed = true
	c.out = out
	c.err = err
	cont := c.cont
	suppressed := c.cancelled
	c.mu.Unlock()
	close(c.done)
	if cont != nil && !suppressed {
		cont(out, err)
	}
}

// Done is closed when the invocation reaches a terminal state.
func (c *Call) Done() <-chan struct{} { return c.done }

// Poll returns the result so far; ok is false until completion.
func (c *Call) Poll() (out *models.Outcome, err error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out, c.err, c.completed
}

// Wait blocks until the invocation completes or ctx expires.
func (c *Call) Wait(ctx context.Context) (*models.Outcome, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.out, c.err
	case <-ctx.Done():
		return nil, &DomainError{Kind: KindTransport, Reason: models.ReasonOf(ctx.Err()), Cause: ctx.Err()}
	}
}

// OnComplete attaches the single completion continuation. If the call has
// already completed the continuation fires on a fresh goroutine.
func (c *Call) OnComplete(fn func(*models.Outcome, error)) {
	c.mu.Lock()
	if c.cont != nil || c.cancelled {
		c.mu.Unlock()
		return
	}
	if c.completed {
		out, err := c.out, c.err
		c.mu.Unlock()
		go fn(out, err)
		return
	}
	c.cont = fn
	c.mu.Unlock()
}

// Cancel abandons the invocation; the continuation will not fire.
func (c *Call) Cancel() {
	c.mu.Lock()
	if c.completed || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
