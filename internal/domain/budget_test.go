package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunBudget_Size(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{8, 8},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NewRunBudget(tt.size).Size())
	}

	assert.GreaterOrEqual(t, DefaultBudgetSize(), 1)
}

func TestRunBudget_AcquireBlocksWhenExhausted(t *testing.T) {
	budget := NewRunBudget(1)

	require.NoError(t, budget.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := budget.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	budget.Release()

	require.NoError(t, budget.Acquire(context.Background()))
	budget.Release()
}
