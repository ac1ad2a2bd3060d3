package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	p := NewPool(4, 2)
	defer p.Close()

	var ran int32
	done := make(chan struct{})
	if err := p.Submit(func() {
		atomic.AddInt32(&ran, 1)
		close(done)
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job did not run")
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("job ran %d times", ran)
	}
}

func TestPoolFull(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Close()

	block := make(chan struct{})
	// occupy the single worker, then fill the queue
	_ = p.Submit(func() { <-block })
	for i := 0; i < 50; i++ {
		if err := p.Submit(func() {}); err == ErrPoolFull {
			close(block)
			if p.Dropped() == 0 {
				t.Fatalf("expected dropped > 0")
			}
			return
		}
	}
	close(block)
	t.Fatalf("expected ErrPoolFull")
}

func TestSubmitWaitContextCancel(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Close()

	block := make(chan struct{})
	defer close(block)
	_ = p.Submit(func() { <-block })
	// fill the queue so the next SubmitWait blocks
	filled := false
	for i := 0; i < 50; i++ {
		if err := p.Submit(func() {}); err == ErrPoolFull {
			filled = true
			break
		}
	}
	if !filled {
		t.Fatalf("could not fill the queue")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.SubmitWait(ctx, func() {}); err == nil {
		t.Fatalf("expected SubmitWait to fail on cancelled context")
	}
}

func TestCloseDrainsAndRejects(t *testing.T) {
	p := NewPool(8, 2)
	var ran int32
	for i := 0; i < 5; i++ {
		_ = p.Submit(func() { atomic.AddInt32(&ran, 1) })
	}
	p.Close()
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Fatalf("expected queued jobs to drain, ran %d", got)
	}
	if err := p.Submit(func() {}); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}
