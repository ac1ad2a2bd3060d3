package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Default and configuration values.
const defaultCapacity = 1024
const defaultWorkers = 8

// ErrPoolFull is returned by Submit when the job queue is at capacity.
var ErrPoolFull = errors.New("dispatch pool full")

// ErrPoolClosed is returned when submissions arrive after Close.
var ErrPoolClosed = errors.New("dispatch pool closed")

// Pool is a bounded worker pool executing submitted jobs on its own
// goroutines. It owns the execution context of non-blocking invocations:
// completion continuations fire on pool goroutines, never on the caller's.
type Pool struct {
	ch      chan func()
	wg      sync.WaitGroup
	subWg   sync.WaitGroup
	closed  int32
	once    sync.Once
	submits uint64
	drops   uint64
}

// NewPool creates a pool with the given queue capacity and worker count
// and starts its workers. Non-positive values fall back to defaults.
func NewPool(capacity, workers int) *Pool {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &Pool{ch: make(chan func(), capacity)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.ch {
		job()
	}
}

// Submit enqueues a job without blocking; ErrPoolFull when at capacity.
func (p *Pool) Submit(job func()) error {
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}
	p.subWg.Add(1)
	defer p.subWg.Done()
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}
	atomic.AddUint64(&p.submits, 1)
	select {
	case p.ch <- job:
		return nil
	default:
		atomic.AddUint64(&p.drops, 1)
		return ErrPoolFull
	}
}

// SubmitWait blocks until the job is accepted or ctx is done.
func (p *Pool) SubmitWait(ctx context.Context, job func()) error {
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}
	p.subWg.Add(1)
	defer p.subWg.Done()
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}
	atomic.AddUint64(&p.submits, 1)
	select {
	case p.ch <- job:
		return nil
	case <-ctx.Done():
		atomic.AddUint64(&p.drops, 1)
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued work to drain.
func (p *Pool) Close() {
	p.once.Do(func() {
		atomic.StoreInt32(&p.closed, 1)
		p.subWg.Wait()
		close(p.ch)
	})
	p.wg.Wait()
}

// Dropped reports how many submissions were rejected.
func (p *Pool) Dropped() uint64 { return atomic.LoadUint64(&p.drops) }
