package yallaasync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sleepOp(d time.Duration, out any) Operation {
	return func(ctx context.Context, progress func(any)) (Result, error) {
		select {
		case <-time.After(d):
			return Result{ExitCode: 0, Output: out}, nil
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

func TestRunParallelPreservesSubmissionOrder(t *testing.T) {
	exec := NewExecutor(3)
	units := []Unit{
		{Operation: sleepOp(50*time.Millisecond, "a")},
		{Operation: sleepOp(100*time.Millisecond, "b")},
		{Operation: sleepOp(10*time.Millisecond, "c")},
	}

	start := time.Now()
	results, err := exec.RunParallel(context.Background(), units, ParallelOptions{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, "a", results[0].Output)
	require.Equal(t, "b", results[1].Output)
	require.Equal(t, "c", results[2].Output)
	require.Less(t, elapsed, 200*time.Millisecond)
}

func TestRunParallelBoundsConcurrency(t *testing.T) {
	exec := NewExecutor(1)
	units := []Unit{
		{Operation: sleepOp(20*time.Millisecond, 1)},
		{Operation: sleepOp(20*time.Millisecond, 2)},
		{Operation: sleepOp(20*time.Millisecond, 3)},
	}

	start := time.Now()
	_, err := exec.RunParallel(context.Background(), units, ParallelOptions{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestRunParallelAggregatesErrors(t *testing.T) {
	exec := NewExecutor(2)
	boom := errors.New("boom")
	units := []Unit{
		{Operation: sleepOp(5*time.Millisecond, "ok")},
		{Operation: func(ctx context.Context, progress func(any)) (Result, error) {
			return Result{}, boom
		}},
	}

	results, err := exec.RunParallel(context.Background(), units, ParallelOptions{})
	require.Error(t, err)

	var composite *CompositeError
	require.ErrorAs(t, err, &composite)
	require.ErrorIs(t, composite.Causes[1], boom)
	require.NotNil(t, results[0])
	require.Nil(t, results[1])
}

func TestSubmitRejectsOnTimeout(t *testing.T) {
	exec := NewExecutor(1)
	p := exec.Submit(context.Background(), sleepOp(100*time.Millisecond, "slow"), 10*time.Millisecond)

	_, err := p.Wait(0)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestProgressForwardedDuringRunParallel(t *testing.T) {
	exec := NewExecutor(2)
	units := []Unit{
		{Operation: func(ctx context.Context, progress func(any)) (Result, error) {
			progress("halfway")
			return Result{ExitCode: 0}, nil
		}},
	}

	var seen []any
	_, err := exec.RunParallel(context.Background(), units, ParallelOptions{
		OnProgress: func(index int, event any) { seen = append(seen, event) },
	})
	require.NoError(t, err)
	require.Equal(t, []any{"halfway"}, seen)
}
