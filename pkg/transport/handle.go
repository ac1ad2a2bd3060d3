package transport

import (
	"context"
	"sync"

	"callbridge/pkg/models"
)

// Handle tracks one non-blocking exchange. Completion is signaled exactly
// once; callers may attach a single continuation or poll. Continuations
// run on a transport-owned goroutine, never on the caller's.
type Handle struct {
	mu        sync.Mutex
	done      chan struct{}
	raw       *models.RawResponse
	err       error
	completed bool
	cancelled bool
	cont      func(*models.RawResponse, error)
	cancel    context.CancelFunc
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) complete(raw *models.RawResponse, err error) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.completed = true
	h.raw = raw
	h.err = err
	cont := h.cont
	suppressed := h.cancelled
	h.mu.Unlock()
	close(h.done)
	if cont != nil && !suppressed {
		cont(raw, err)
	}
}

// Done is closed once a terminal result is available (including after
// cancellation).
func (h *Handle) Done() <-chan struct{} { return h.done }

// Poll returns the result so far. ok is false until completion.
func (h *Handle) Poll() (raw *models.RawResponse, err error, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.raw, h.err, h.completed
}

// Wait blocks until completion or ctx expiry.
func (h *Handle) Wait(ctx context.Context) (*models.RawResponse, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.raw, h.err
	case <-ctx.Done():
		return nil, &models.FailureError{Reason: models.ReasonOf(ctx.Err()), Err: ctx.Err()}
	}
}

// OnComplete attaches the completion continuation. At most one may be
// attached; later calls are ignored. If the handle already completed the
// continuation fires immediately on a fresh goroutine.
func (h *Handle) OnComplete(fn func(*models.RawResponse, error)) {
	h.mu.Lock()
	if h.cont != nil || h.cancelled {
		h.mu.Unlock()
		return
	}
	if h.completed {
		raw, err := h.raw, h.err
		h.mu.Unlock()
		go fn(raw, err)
		return
	}
	h.cont = fn
	h.mu.Unlock()
}

// Cancel abandons the in-flight exchange. The continuation will not fire;
// Done still closes so pollers are released. Server-side processing is not
// guaranteed to stop.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.completed || h.cancelled {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
