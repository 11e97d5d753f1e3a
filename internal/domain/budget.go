package domain

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// RunBudget caps how many coverage subprocesses run at the same time.
type RunBudget struct {
	sem  *semaphore.Weighted
	size int
}

// NewRunBudget returns a budget of size slots; sizes below one become one.
func NewRunBudget(size int) *RunBudget {
	if size < 1 {
		size = 1
	}

	return &RunBudget{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// DefaultBudgetSize is the number of available CPUs, at least one.
func DefaultBudgetSize() int {
	return max(runtime.NumCPU(), 1)
}

// Acquire blocks until a slot is free or ctx is done.
func (b *RunBudget) Acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

// Release returns a slot taken by Acquire.
func (b *RunBudget) Release() {
	b.sem.Release(1)
}

// Size returns the number of slots.
func (b *RunBudget) Size() int {
	return b.size
}
