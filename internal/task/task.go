// Package task runs background operations on a bounded pool and hands their
// outcome back as a Future.
//
// Tasks are independent: there is no ordering between two submissions and no
// task cancels another. A panicking task resolves its Future with an error.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const defaultPoolSize = 4

// Result is the outcome of a task: a value or an error.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the task succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Future resolves once its task finishes.
type Future[T any] struct {
	done chan struct{}
	res  Result[T]
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the task finishes.
func (f *Future[T]) Result() Result[T] {
	<-f.done
	return f.res
}

// Wait blocks until the task finishes or ctx ends. The task keeps running
// when ctx ends first.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Pool bounds how many tasks run at once.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
	log zerolog.Logger
}

// NewPool returns a pool running at most size tasks concurrently.
func NewPool(size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = defaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), log: log}
}

// Submit starts fn on the pool. ctx is handed to fn and bounds the wait for
// a free slot.
func Submit[T any](p *Pool, ctx context.Context, name string, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(f.done)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.res.Err = fmt.Errorf("%s: %w", name, err)
			return
		}
		defer p.sem.Release(1)

		f.res = run(ctx, name, fn)
		if f.res.Err != nil {
			p.log.Warn().Err(f.res.Err).Str("task", name).Msg("task failed")
		} else {
			p.log.Debug().Str("task", name).Msg("task finished")
		}
	}()
	return f
}

func run[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("%s panicked: %v\n%s", name, r, debug.Stack())}
		}
	}()
	v, err := fn(ctx)
	return Result[T]{Value: v, Err: err}
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
