package dispatch

import (
	"cmp"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"proposalScope/internal/metrics"
	"proposalScope/internal/queue"
)

type attemptLog struct {
	mu    sync.Mutex
	count map[int]int
	times map[int][]time.Time
	order []int
}

func newAttemptLog() *attemptLog {
	return &attemptLog{count: make(map[int]int), times: make(map[int][]time.Time)}
}

func (l *attemptLog) record(task int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count[task]++
	l.times[task] = append(l.times[task], time.Now())
	if l.count[task] == 1 {
		l.order = append(l.order, task)
	}
	return l.count[task]
}

func intQueue(values ...int) *queue.PriorityQueue[int] {
	q := queue.New(cmp.Compare[int])
	for _, v := range values {
		q.Push(v)
	}
	return q
}

func TestDispatcherRetriesAndAbortsOnTerminalFailure(t *testing.T) {
	const base = 20 * time.Millisecond
	log := newAttemptLog()

	var inFlight, maxInFlight atomic.Int32
	run := func(ctx context.Context, task int) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}

		attempt := log.record(task)
		time.Sleep(2 * time.Millisecond)

		switch {
		case task == 5:
			return errors.New("task 5 broken")
		case (task == 1 || task == 3) && attempt == 1:
			return errors.New("transient")
		}
		return nil
	}

	d := New[int](intQueue(5, 4, 3, 2, 1), run, Config{Concurrency: 2, MaxRetries: 3, BaseDelay: base}, zaptest.NewLogger(t), nil)
	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 5 broken")

	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
	assert.Equal(t, 2, log.count[1])
	assert.Equal(t, 1, log.count[2])
	assert.Equal(t, 2, log.count[3])
	assert.Equal(t, 1, log.count[4])
	assert.Equal(t, 3, log.count[5])

	times := log.times[5]
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), base)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 2*base)
}

// countingSource records how many tasks have left the queue.
type countingSource struct {
	q      *queue.PriorityQueue[int]
	popped atomic.Int32
}

func (s *countingSource) Pop() (int, bool) {
	task, ok := s.q.Pop()
	if ok {
		s.popped.Add(1)
	}
	return task, ok
}

func TestDispatcherPopsOnlyWhenSlotFree(t *testing.T) {
	src := &countingSource{q: intQueue(1, 2, 3, 4, 5)}
	release := make(chan struct{})
	var running atomic.Int32
	run := func(ctx context.Context, task int) error {
		running.Add(1)
		<-release
		return nil
	}

	d := New[int](src, run, Config{Concurrency: 2}, zaptest.NewLogger(t), nil)
	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), src.popped.Load())

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, int32(5), src.popped.Load())
	assert.Equal(t, int32(5), running.Load())
}

func TestDispatcherTerminalFailureLeavesQueuedTasks(t *testing.T) {
	src := &countingSource{q: intQueue(1, 2, 3)}
	m := metrics.New(prometheus.NewRegistry(), "test")
	run := func(ctx context.Context, task int) error {
		return Permanent(errors.New("broken"))
	}

	d := New[int](src, run, Config{Concurrency: 1, BaseDelay: time.Millisecond}, nil, m)
	require.Error(t, d.Run(context.Background()))

	assert.Equal(t, int32(1), src.popped.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFailed))
	assert.Equal(t, 2, src.q.Len())
}

func TestDispatcherStartsInQueueOrder(t *testing.T) {
	log := newAttemptLog()
	run := func(ctx context.Context, task int) error {
		log.record(task)
		return nil
	}

	d := New[int](intQueue(7, 3, 9, 1, 4), run, Config{Concurrency: 1}, nil, nil)
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []int{1, 3, 4, 7, 9}, log.order)
}

func TestDispatcherRunsEverything(t *testing.T) {
	var done atomic.Int32
	run := func(ctx context.Context, task int) error {
		time.Sleep(time.Millisecond)
		done.Add(1)
		return nil
	}

	values := make([]int, 50)
	for i := range values {
		values[i] = i
	}
	d := New[int](intQueue(values...), run, Config{Concurrency: 8}, nil, nil)
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, int32(50), done.Load())
}

func TestDispatcherEmptyQueue(t *testing.T) {
	called := false
	d := New[int](intQueue(), func(context.Context, int) error {
		called = true
		return nil
	}, Config{}, nil, nil)
	require.NoError(t, d.Run(context.Background()))
	assert.False(t, called)
}

func TestDispatcherPermanentErrorNotRetried(t *testing.T) {
	log := newAttemptLog()
	errBad := errors.New("bad bytes")
	run := func(ctx context.Context, task int) error {
		log.record(task)
		return Permanent(errBad)
	}

	d := New[int](intQueue(1), run, Config{MaxRetries: 5, BaseDelay: time.Millisecond}, nil, nil)
	err := d.Run(context.Background())
	require.ErrorIs(t, err, errBad)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, log.count[1])
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32
	run := func(ctx context.Context, task int) error {
		if started.Add(1) == 2 {
			cancel()
		}
		<-ctx.Done()
		return ctx.Err()
	}

	d := New[int](intQueue(1, 2, 3, 4, 5, 6), run, Config{Concurrency: 2, BaseDelay: time.Millisecond}, nil, nil)
	err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, started.Load(), int32(2))
}

func TestDispatcherNilDependencies(t *testing.T) {
	assert.Error(t, New[int](nil, func(context.Context, int) error { return nil }, Config{}, nil, nil).Run(context.Background()))
	assert.Error(t, New[int](intQueue(1), nil, Config{}, nil, nil).Run(context.Background()))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = Config{Concurrency: 2, MaxRetries: 7, BaseDelay: time.Second}.withDefaults()
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BaseDelay)
}
