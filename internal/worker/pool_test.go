package worker

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteKeepsInputOrder(t *testing.T) {
	pool := NewPool(4, func(_ context.Context, n int) (string, error) {
		if n%5 == 0 {
			return "", errors.New("multiple of five")
		}
		return strconv.Itoa(n * n), nil
	})

	inputs := make([]int, 50)
	for i := range inputs {
		inputs[i] = i + 1
	}
	results := pool.Execute(context.Background(), inputs)
	require.Len(t, results, len(inputs))
	for i, r := range results {
		assert.Equal(t, inputs[i], r.Input)
		if r.Input%5 == 0 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, strconv.Itoa(r.Input*r.Input), r.Result)
	}
}

func TestExecuteSkipsInputsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	pool := NewPool(2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	results := pool.Execute(ctx, []int{1, 2, 3})
	require.Len(t, results, 3)
	assert.Zero(t, calls.Load())
	for i, r := range results {
		assert.Equal(t, i+1, r.Input)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestNewPoolClampsWorkers(t *testing.T) {
	pool := NewPool(0, func(_ context.Context, s string) (string, error) { return s, nil })
	results := pool.Execute(context.Background(), []string{"a"})
	assert.Equal(t, "a", results[0].Result)
}

func TestBatch(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1}, {2}}, Batch([]int{1, 2}, 0))
	assert.Nil(t, Batch([]int{}, 3))
}
