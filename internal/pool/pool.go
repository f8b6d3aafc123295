// Package pool runs tasks on a bounded number of goroutines and hands back a
// future per task.
package pool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool bounds how many submitted tasks run at once. Task errors are kept in their
// futures and never cancel sibling tasks.
type Pool struct {
	ctx       context.Context
	g         errgroup.Group
	submitted atomic.Int64
	running   atomic.Int64
}

// New creates a pool running at most limit tasks concurrently. A limit <= 0 means
// no bound.
func New(ctx context.Context, limit int) *Pool {
	p := &Pool{ctx: ctx}
	if limit > 0 {
		p.g.SetLimit(limit)
	} else {
		p.g.SetLimit(-1)
	}
	return p
}

// Future is the pending result of one submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Result returns the outcome of the task, blocking until it has finished.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Submit schedules fn and returns its future. It blocks while the pool is at its
// limit. If the pool context is already done when a slot frees up, fn is not run
// and the future carries the context error.
func Submit[T any](p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	p.submitted.Add(1)
	p.g.Go(func() error {
		defer close(f.done)
		if err := p.ctx.Err(); err != nil {
			f.err = err
			return nil
		}
		p.running.Add(1)
		defer p.running.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		f.value, f.err = fn(p.ctx)
		return nil
	})
	return f
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}

// Submitted returns the number of tasks submitted so far.
func (p *Pool) Submitted() int64 { return p.submitted.Load() }

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int64 { return p.running.Load() }
