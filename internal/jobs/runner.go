package jobs

import (
	"context"
	"errors"
	"sync"
)

// ErrRunnerClosed reports a Run call against a closed runner.
var ErrRunnerClosed = errors.New("job runner closed")

// Runner executes external commands with bounded concurrency. Run blocks
// while all slots are busy, so callers queue naturally without additional
// machinery.
type Runner struct {
	executor Executor
	slots    chan struct{}

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// Option adjusts runner construction.
type Option func(*Runner)

// WithExecutor substitutes the command executor. Tests use this to script
// command outcomes without forking processes.
func WithExecutor(executor Executor) Option {
	return func(r *Runner) {
		if executor != nil {
			r.executor = executor
		}
	}
}

// NewRunner builds a runner with the given number of worker slots. Values
// below one fall back to a single slot.
func NewRunner(workers int, opts ...Option) *Runner {
	if workers < 1 {
		workers = 1
	}
	runner := &Runner{
		executor: NewOSExecutor(),
		slots:    make(chan struct{}, workers),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Workers reports the pool size.
func (r *Runner) Workers() int {
	return cap(r.slots)
}

// Run executes the request once a worker slot frees up. It blocks until the
// command finishes and returns its captured output. Non-zero exits are
// reported in the Result, not as errors; errors mean the command never ran
// to completion (spawn failure, cancellation, closed runner).
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Result{}, ErrRunnerClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return Result{ExitCode: -1}, ctx.Err()
	}
	defer func() { <-r.slots }()

	return r.executor.Execute(ctx, req)
}

// Close marks the runner closed and waits for in-flight commands to finish.
// Subsequent Run calls fail with ErrRunnerClosed.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
}
