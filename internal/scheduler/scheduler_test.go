package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ResultsInSubmissionOrder(t *testing.T) {
	s := New(3)
	tasks := make([]Task[int], 6)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context, w io.Writer) int {
			// Later tasks finish first.
			time.Sleep(time.Duration(len(tasks)-i) * time.Millisecond)
			fmt.Fprintf(w, "task %d line 1\n", i)
			fmt.Fprintf(w, "task %d line 2\n", i)
			return i * 10
		}
	}

	var out bytes.Buffer
	results := Run(context.Background(), s, tasks, &out)

	assert.Equal(t, []int{0, 10, 20, 30, 40, 50}, results)

	var want strings.Builder
	for i := range tasks {
		fmt.Fprintf(&want, "task %d line 1\ntask %d line 2\n", i, i)
	}
	assert.Equal(t, want.String(), out.String())
	assert.LessOrEqual(t, s.MaxActive(), 3)
	assert.Zero(t, s.Active())
}

func TestRun_SequentialWithLimitOne(t *testing.T) {
	s := New(1)

	var (
		mu    sync.Mutex
		order []int
	)
	tasks := make([]Task[struct{}], 5)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context, w io.Writer) struct{} {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			return struct{}{}
		}
	}

	Run(context.Background(), s, tasks, nil)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 1, s.MaxActive())
}

func TestRun_FIFOAdmission(t *testing.T) {
	s := New(2)

	var (
		mu      sync.Mutex
		started []int
	)
	tasks := make([]Task[int], 8)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context, w io.Writer) int {
			mu.Lock()
			started = append(started, i)
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			return i
		}
	}

	Run(context.Background(), s, tasks, nil)
	require.Len(t, started, 8)
	// A task can only start once every earlier task has been admitted.
	for pos, i := range started {
		assert.LessOrEqual(t, i, pos+1, "task %d started at position %d", i, pos)
	}
}

func TestRun_PanicsAreContained(t *testing.T) {
	s := New(2)
	tasks := []Task[string]{
		func(ctx context.Context, w io.Writer) string { return "ok" },
		func(ctx context.Context, w io.Writer) string { panic("kaboom") },
		func(ctx context.Context, w io.Writer) string { return "also ok" },
	}

	var out bytes.Buffer
	results := Run(context.Background(), s, tasks, &out, WithPanicHandler(func(index int, recovered any) string {
		return fmt.Sprintf("panic in %d: %v", index, recovered)
	}))

	assert.Equal(t, []string{"ok", "panic in 1: kaboom", "also ok"}, results)
	assert.Contains(t, out.String(), "task 1 panicked: kaboom")
	assert.Zero(t, s.Active())

	results = Run(context.Background(), s, tasks, nil)
	assert.Equal(t, "", results[1])
}

func TestRun_CancelledContextStillYieldsAllResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := make([]Task[error], 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context, w io.Writer) error {
			return ctx.Err()
		}
	}

	results := Run(ctx, New(2), tasks, nil)
	require.Len(t, results, 5)
	for _, err := range results {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestNew_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, New(0).Limit())
	assert.Equal(t, 7, New(7).Limit())
}

func TestRun_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("N tasks yield N attributable results and at most K are active", prop.ForAll(
		func(n, k int, failEvery int) bool {
			s := New(k)

			var (
				mu       sync.Mutex
				active   int
				observed int
			)
			tasks := make([]Task[int], n)
			for i := range tasks {
				i := i
				tasks[i] = func(ctx context.Context, w io.Writer) int {
					mu.Lock()
					active++
					if active > observed {
						observed = active
					}
					mu.Unlock()

					time.Sleep(100 * time.Microsecond)

					mu.Lock()
					active--
					mu.Unlock()

					if i%failEvery == 0 {
						panic("task failure")
					}
					return i
				}
			}

			results := Run(context.Background(), s, tasks, io.Discard, WithPanicHandler(func(index int, _ any) int {
				return index
			}))

			if len(results) != n || observed > k || s.MaxActive() > k {
				return false
			}
			for i, r := range results {
				if r != i {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 8),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
