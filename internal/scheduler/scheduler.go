// Package scheduler runs independent tasks with bounded concurrency.
//
// Tasks are admitted in submission order and at most Limit of them are
// active at any time. Each task writes into its own buffer; the buffers are
// flushed to the shared writer in submission order once every task has
// finished, so output is deterministic whatever the completion order.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the number of concurrently active tasks when none is given.
const DefaultLimit = 4

// Task is one unit of work. w is private to the task.
type Task[R any] func(ctx context.Context, w io.Writer) R

// Scheduler holds the concurrency bound and the admission counters.
type Scheduler struct {
	limit int

	active    atomic.Int64
	maxActive atomic.Int64
}

// New creates a scheduler admitting at most limit tasks at once. A limit
// below one falls back to DefaultLimit.
func New(limit int) *Scheduler {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Scheduler{limit: limit}
}

// Limit returns the concurrency bound.
func (s *Scheduler) Limit() int {
	return s.limit
}

// Active returns the number of tasks currently running.
func (s *Scheduler) Active() int {
	return int(s.active.Load())
}

// MaxActive returns the highest number of simultaneously running tasks seen.
func (s *Scheduler) MaxActive() int {
	return int(s.maxActive.Load())
}

type runConfig[R any] struct {
	onPanic func(index int, recovered any) R
}

// Option configures a single Run.
type Option[R any] func(*runConfig[R])

// WithPanicHandler converts a panicking task into a result. Without it a
// panicking task yields the zero R.
func WithPanicHandler[R any](fn func(index int, recovered any) R) Option[R] {
	return func(c *runConfig[R]) {
		c.onPanic = fn
	}
}

// Run executes tasks and returns their results in submission order.
//
// Every task is started, even after ctx is cancelled; tasks observe the
// cancellation through their own context and are expected to return quickly.
// This keeps the result count equal to the task count and lets each task run
// its own cleanup.
func Run[R any](ctx context.Context, s *Scheduler, tasks []Task[R], out io.Writer, opts ...Option[R]) []R {
	cfg := runConfig[R]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	results := make([]R, len(tasks))
	buffers := make([]bytes.Buffer, len(tasks))
	sem := semaphore.NewWeighted(int64(s.limit))

	var wg sync.WaitGroup
	for i, task := range tasks {
		// Admission ignores cancellation, so Acquire cannot fail.
		_ = sem.Acquire(context.WithoutCancel(ctx), 1)

		wg.Add(1)
		go func(i int, task Task[R]) {
			defer wg.Done()
			defer sem.Release(1)

			s.enter()
			defer s.active.Add(-1)

			results[i] = runTask(ctx, i, task, &buffers[i], cfg)
		}(i, task)
	}
	wg.Wait()

	if out != nil {
		for i := range buffers {
			_, _ = buffers[i].WriteTo(out)
		}
	}
	return results
}

func (s *Scheduler) enter() {
	n := s.active.Add(1)
	for {
		current := s.maxActive.Load()
		if n <= current || s.maxActive.CompareAndSwap(current, n) {
			return
		}
	}
}

func runTask[R any](ctx context.Context, index int, task Task[R], w io.Writer, cfg runConfig[R]) (result R) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(w, "task %d panicked: %v\n%s", index, r, debug.Stack())
			if cfg.onPanic != nil {
				result = cfg.onPanic(index, r)
			}
		}
	}()
	return task(ctx, w)
}
