package yallaasync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Operation is a unit of work submitted to an Executor. ctx is
// cancelled cooperatively — the command owning the operation must poll
// ctx.Err() or ctx.Done() and return promptly once it fires. progress,
// if non-nil, lets the operation report incremental updates that are
// forwarded to the promise's OnProgress subscribers.
type Operation func(ctx context.Context, progress func(any)) (Result, error)

// Executor bounds how many operations run concurrently and tracks them
// so a caller can fan out with run_parallel semantics.
type Executor struct {
	sem *semaphore.Weighted
}

// NewExecutor builds an Executor admitting at most maxConcurrent
// operations at a time. maxConcurrent <= 0 means unbounded.
func NewExecutor(maxConcurrent int) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1 << 30
	}
	return &Executor{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Submit admits op (blocking until a slot is free or ctx is cancelled)
// and runs it on its own goroutine, honoring timeout if positive.
// Submit itself does not block past admission; use the returned
// promise's Wait to block for completion.
func (e *Executor) Submit(ctx context.Context, op Operation, timeout time.Duration) *Promise {
	p := newPromise()

	unitCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := e.sem.Acquire(ctx, 1); err != nil {
		cancel()
		p.reject(fmt.Errorf("%w: %v", ErrCancelled, err))
		return p
	}

	go func() {
		defer e.sem.Release(1)
		defer cancel()

		var timer *time.Timer
		if timeout > 0 {
			timer = time.AfterFunc(timeout, cancel)
			defer timer.Stop()
		}

		start := time.Now()
		result, err := op(unitCtx, p.emitProgress)
		result.DurationMS = time.Since(start).Milliseconds()

		if err != nil {
			if unitCtx.Err() != nil && timer != nil {
				p.reject(ErrTimeout)
				return
			}
			p.reject(err)
			return
		}
		p.resolve(result)
	}()

	return p
}

// Unit names one submission to RunParallel: its own operation plus the
// per-unit timeout it carries (zero means no timeout).
type Unit struct {
	ID        string
	Operation Operation
	Timeout   time.Duration
}

// ParallelOptions configures RunParallel's fail-fast and progress
// forwarding behavior.
type ParallelOptions struct {
	FailFast bool
	// OnProgress, if set, receives (unitIndex, event) for every progress
	// emission from any unit.
	OnProgress func(index int, event any)
}

// CompositeError aggregates the per-index causes from a RunParallel
// call where at least one unit rejected.
type CompositeError struct {
	Causes map[int]error
}

func (e *CompositeError) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for i, err := range e.Causes {
		parts = append(parts, fmt.Sprintf("[%d] %s", i, err))
	}
	return "yallaasync: parallel execution failed: " + strings.Join(parts, "; ")
}

// RunParallel admits ops up to the executor's concurrency bound and
// collects their results ordered by submission index, regardless of
// completion order. If FailFast is set and any unit rejects, queued
// but not-yet-started units are cancelled; already in-flight units see
// the same cancellation through their shared ctx and settle at their
// next cooperative check.
// Returns the ordered results (nil entries where a unit never settled)
// and, if any unit rejected, a *CompositeError.
func (e *Executor) RunParallel(parent context.Context, units []Unit, opts ParallelOptions) ([]*Result, error) {
	ctx, cancelAll := context.WithCancel(parent)
	defer cancelAll()

	results := make([]*Result, len(units))
	promises := make([]*Promise, len(units))

	for i, u := range units {
		i, u := i, u
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		op := u.Operation
		wrapped := op
		if opts.OnProgress != nil {
			idx := i
			wrapped = func(ctx context.Context, progress func(any)) (Result, error) {
				return op(ctx, func(event any) {
					opts.OnProgress(idx, event)
					progress(event)
				})
			}
		}
		promises[i] = e.Submit(ctx, wrapped, u.Timeout)
		if opts.FailFast {
			promises[i].Catch(func(error) { cancelAll() })
		}
	}

	causes := map[int]error{}
	for i, p := range promises {
		result, err := p.Wait(0)
		if err != nil {
			causes[i] = err
			if opts.FailFast {
				cancelAll()
			}
			continue
		}
		r := result
		results[i] = &r
	}

	if len(causes) > 0 {
		return results, &CompositeError{Causes: causes}
	}
	return results, nil
}
