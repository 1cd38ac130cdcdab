package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Job is run by a pool goroutine with the context it was submitted with.
// Every accepted job is invoked, even when its context is already done.
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

type job struct {
	ctx context.Context
	fn  Job
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1), closed: make(chan struct{})}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(id, j)
			}
		}(i)
	}
}

func (p *Pool) run(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker %d: job panicked: %v", id, r)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		log.Printf("worker %d: job context already done: %v", id, err)
	}
	j.fn(j.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if
// dropped or if the pool is closed.
func (p *Pool) Submit(ctx context.Context, fn Job) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case p.jobs <- job{ctx: ctx, fn: fn}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work. Submit must not be
// called concurrently with Close.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
}
