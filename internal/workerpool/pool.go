// Package workerpool runs tasks on a fixed set of core workers backed by a
// bounded queue. When the queue is full, up to BurstWorkers extra goroutines
// are started; they exit after BurstIdleTimeout without work. When both the
// queue and the burst slots are exhausted, Submit fails with ErrRejected.
package workerpool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrRejected is returned by Submit when the pool is saturated.
	ErrRejected = errors.New("workerpool: saturated, task rejected")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("workerpool: closed")
)

// Config configures a Pool.
type Config struct {
	Name             string
	Workers          int
	BurstWorkers     int
	QueueSize        int
	BurstIdleTimeout time.Duration

	// OnReject is called for every rejected task.
	OnReject func(name string)
	// OnPanic is called when a task panics; the worker keeps running.
	OnPanic func(name string, recovered any, stack []byte)
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Queued      int
	QueueSize   int
	Workers     int
	BurstActive int
	BurstMax    int
}

// Pool is safe for concurrent use.
type Pool struct {
	cfg   Config
	tasks chan func()
	burst *semaphore.Weighted

	mu     sync.RWMutex // guards closed against sends on tasks
	closed bool

	wg          sync.WaitGroup
	burstActive atomic.Int32
}

// New starts the core workers.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.BurstIdleTimeout <= 0 {
		cfg.BurstIdleTimeout = 30 * time.Second
	}

	p := &Pool{
		cfg:   cfg,
		tasks: make(chan func(), cfg.QueueSize),
	}
	if cfg.BurstWorkers > 0 {
		p.burst = semaphore.NewWeighted(int64(cfg.BurstWorkers))
	}

	for range cfg.Workers {
		p.wg.Go(p.worker)
	}
	return p
}

// Submit queues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
	}

	if p.burst != nil && p.burst.TryAcquire(1) {
		p.burstActive.Add(1)
		p.wg.Go(func() { p.burstWorker(task) })
		return nil
	}

	if p.cfg.OnReject != nil {
		p.cfg.OnReject(p.cfg.Name)
	}
	return ErrRejected
}

func (p *Pool) worker() {
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) burstWorker(first func()) {
	defer func() {
		p.burstActive.Add(-1)
		p.burst.Release(1)
	}()

	p.run(first)

	idle := time.NewTimer(p.cfg.BurstIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(task)
			idle.Reset(p.cfg.BurstIdleTimeout)
		case <-idle.C:
			return
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil && p.cfg.OnPanic != nil {
			p.cfg.OnPanic(p.cfg.Name, r, debug.Stack())
		}
	}()
	task()
}

// Stats returns current queue and worker counts.
func (p *Pool) Stats() Stats {
	return Stats{
		Queued:      len(p.tasks),
		QueueSize:   cap(p.tasks),
		Workers:     p.cfg.Workers,
		BurstActive: int(p.burstActive.Load()),
		BurstMax:    p.cfg.BurstWorkers,
	}
}

// Name returns the pool name used in metrics and logs.
func (p *Pool) Name() string {
	return p.cfg.Name
}

// Shutdown stops accepting tasks, lets queued tasks finish and waits for all
// workers. It returns ctx.Err() if ctx ends first; workers keep draining.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
