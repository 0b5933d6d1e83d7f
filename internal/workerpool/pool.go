// Package workerpool provides the process-wide bounded pool that batch
// analysis is scheduled on.
package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is one unit of work. It receives the context given to Submit.
type Task func(ctx context.Context)

type job struct {
	ctx  context.Context
	task Task
}

// Pool runs tasks on a fixed number of goroutines. It is built once at
// startup, shared by every batch, and closed at shutdown.
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	size   int
	once   sync.Once
}

// New starts a pool with size workers (at least one).
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{jobs: make(chan job), size: size}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	log.Info().Int("size", size).Msg("workerpool.New: started")
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit blocks until a worker accepts task, ctx is done, or the pool is closed.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for running tasks to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
		p.wg.Wait()
		log.Info().Msg("workerpool.Close: all workers stopped")
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(id, j)
	}
}

func (p *Pool) run(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("worker", id).Msg("workerpool.run: task panicked")
		}
	}()
	j.task(j.ctx)
}
