package dataflow_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/pkg/dataflow"
)

type row struct {
	ID   string
	Name string
}

func TestMapWithRetry(t *testing.T) {
	ctx := context.Background()
	source := dataflow.From(ctx, "1,Alice", "2,Bob", "retry,Charlie", "broken")

	var dropped int32
	parsed := dataflow.Map(ctx, source, func(s string) (row, error) {
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return row{}, errors.New("invalid format")
		}
		return row{ID: parts[0], Name: parts[1]}, nil
	}, dataflow.WithWorkers(2), dataflow.WithErrorHandler(func(error) bool {
		atomic.AddInt32(&dropped, 1)
		return true
	}))

	var attempts int32
	saved := dataflow.Map(ctx, parsed, func(r row) (row, error) {
		if r.ID == "retry" && atomic.AddInt32(&attempts, 1) < 3 {
			return row{}, errors.New("transient error")
		}
		return r, nil
	}, dataflow.WithRetry(3, func(int) time.Duration { return time.Millisecond }))

	results, err := dataflow.Collect(ctx, saved)
	require.NoError(t, err)

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, names)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&dropped))
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	even := dataflow.Filter(ctx, dataflow.From(ctx, 1, 2, 3, 4), func(n int) bool { return n%2 == 0 })
	got, err := dataflow.Collect(ctx, even)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, got)
}

func TestForEachReportsFirstError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var seen int32
	err := dataflow.ForEach(ctx, dataflow.From(ctx, 1, 2, 3), func(n int) error {
		atomic.AddInt32(&seen, 1)
		if n == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), atomic.LoadInt32(&seen), "later items still run")
}

func TestForEachErrorHandlerSwallows(t *testing.T) {
	ctx := context.Background()
	err := dataflow.ForEach(ctx, dataflow.From(ctx, 1), func(int) error {
		return errors.New("ignored")
	}, dataflow.WithErrorHandler(func(error) bool { return true }))
	assert.NoError(t, err)
}

func TestFanIn(t *testing.T) {
	ctx := context.Background()
	merged := dataflow.FanIn(ctx, dataflow.From(ctx, 1), dataflow.From(ctx, 2))

	sum := 0
	require.NoError(t, dataflow.ForEach(ctx, merged, func(n int) error {
		sum += n
		return nil
	}))
	assert.Equal(t, 3, sum)
}

func TestExponentialBackoff(t *testing.T) {
	b := dataflow.ExponentialBackoff(10*time.Millisecond, 50*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, b(1))
	assert.Equal(t, 20*time.Millisecond, b(2))
	assert.Equal(t, 40*time.Millisecond, b(3))
	assert.Equal(t, 50*time.Millisecond, b(4))
}
