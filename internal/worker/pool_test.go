package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/denoise-pipeline/internal/inference"
	"github.com/tphakala/denoise-pipeline/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func makeItems(n, segmentSize int) []Item {
	items := make([]Item, n)
	for i := 0; i < n; i++ {
		payload := make([]float32, segmentSize)
		for j := range payload {
			payload[j] = float32(i) / float32(n)
		}
		items[i] = Item{SegmentIndex: i, Tensor: tensor.Encode(payload, segmentSize)}
	}
	return items
}

func TestProcessAllPreservesOrderAndRoundTrips(t *testing.T) {
	const segSize = 64
	pool, err := New(Config{
		NumWorkers:            4,
		TotalInferenceThreads: 4,
		MaxRetries:            1,
		SegmentSize:           segSize,
	}, &inference.StubFactory{})
	require.NoError(t, err)
	defer pool.Close()

	items := makeItems(10, segSize)
	results, err := pool.ProcessAll(items)
	require.NoError(t, err)
	require.Len(t, results, 10)

	for i, r := range results {
		assert.Equal(t, i, r.SegmentIndex)
		require.NoError(t, r.Err)
	}
}

func TestProcessAllSingleWorkerMatchesMultiWorkerOrdering(t *testing.T) {
	const segSize = 32
	items := makeItems(20, segSize)

	delayFn := func(idx int) time.Duration { return time.Duration(idx%4) * 2 * time.Millisecond }

	serialPool, err := New(Config{NumWorkers: 1, TotalInferenceThreads: 1, SegmentSize: segSize}, &inference.StubFactory{})
	require.NoError(t, err)
	defer serialPool.Close()
	serialResults, err := serialPool.ProcessAll(items)
	require.NoError(t, err)

	parallelPool, err := New(Config{NumWorkers: 4, TotalInferenceThreads: 4, SegmentSize: segSize}, &inference.StubFactory{Delay: delayFn})
	require.NoError(t, err)
	defer parallelPool.Close()
	parallelResults, err := parallelPool.ProcessAll(items)
	require.NoError(t, err)

	require.Len(t, parallelResults, len(serialResults))
	for i := range serialResults {
		assert.Equal(t, serialResults[i].SegmentIndex, parallelResults[i].SegmentIndex)
		assert.Equal(t, serialResults[i].Payload, parallelResults[i].Payload)
	}
}

func TestCloseShutsDownAllWorkersWithoutLeak(t *testing.T) {
	pool, err := New(Config{NumWorkers: 3, TotalInferenceThreads: 3, SegmentSize: 16}, &inference.StubFactory{})
	require.NoError(t, err)
	pool.Close()
}

func TestProcessAllSurfacesErrorAfterRetriesExhausted(t *testing.T) {
	pool, err := New(Config{
		NumWorkers:            1,
		TotalInferenceThreads: 1,
		MaxRetries:            2,
		SegmentSize:           16,
	}, alwaysFailFactory{})
	require.NoError(t, err)
	defer pool.Close()

	items := makeItems(1, 16)
	_, err = pool.ProcessAll(items)
	require.Error(t, err)
}

type alwaysFailFactory struct{}

func (alwaysFailFactory) New(threads int) (inference.Session, error) {
	return alwaysFailSession{}, nil
}

type alwaysFailSession struct{}

func (alwaysFailSession) Run(_ context.Context, _ []int16) ([]int16, error) {
	return nil, errors.New("session crashed")
}
func (alwaysFailSession) Close() error { return nil }
