// Package pool provides the bounded worker pool shared by every fan-out stage
// of a run: dataset loading, rule-set verification and evaluation jobs.
//
// One Scheduler is built per run and handed to each stage, so all stages
// share a single concurrency limit and a single cancellation signal (the
// context passed to Run).
//
//	sched := pool.New(0) // 0 = runtime.NumCPU()
//	err := sched.Run(ctx, tasks)
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work submitted to a Scheduler. It must return promptly
// once ctx is cancelled.
type Task func(ctx context.Context) error

// Scheduler runs batches of tasks on a bounded number of goroutines.
type Scheduler interface {
	// Run executes all tasks and blocks until they finish. The first task
	// error cancels the context seen by the remaining tasks and is returned.
	Run(ctx context.Context, tasks []Task) error

	// Limit returns the maximum number of tasks running at once.
	Limit() int
}

// ErrGroupScheduler is the default Scheduler built on errgroup.
type ErrGroupScheduler struct {
	limit int
}

// New creates a scheduler running at most limit tasks at once. A limit of zero
// or less sizes the pool to runtime.NumCPU().
func New(limit int) *ErrGroupScheduler {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &ErrGroupScheduler{limit: limit}
}

// Limit returns the pool size.
func (s *ErrGroupScheduler) Limit() int {
	return s.limit
}

// Run executes tasks with at most Limit() running concurrently. Tasks not yet
// started when the context is cancelled are skipped.
func (s *ErrGroupScheduler) Run(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(gctx)
		})
	}

	return g.Wait()
}
