// Package dispatch drains a task queue under a concurrency cap, retrying
// failed tasks with exponential backoff.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"proposalScope/internal/metrics"
)

// Source is the queue a Dispatcher pops tasks from. It is only touched by
// the goroutine calling Run.
type Source[T any] interface {
	Pop() (T, bool)
}

// TaskFunc executes one task.
type TaskFunc[T any] func(ctx context.Context, task T) error

// Config controls concurrency and retry behavior.
type Config struct {
	Concurrency int
	// MaxRetries is the number of attempts per task before it fails terminally.
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 5, MaxRetries: 3, BaseDelay: defaultBaseDelay}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	return c
}

// Dispatcher runs queued tasks with bounded concurrency.
type Dispatcher[T any] struct {
	source  Source[T]
	run     TaskFunc[T]
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New builds a Dispatcher. logger and m may be nil.
func New[T any](source Source[T], run TaskFunc[T], cfg Config, logger *zap.Logger, m *metrics.Metrics) *Dispatcher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[T]{
		source:  source,
		run:     run,
		cfg:     cfg.withDefaults(),
		logger:  logger.With(zap.String("component", "dispatcher")),
		metrics: m,
	}
}

// Run pops tasks in queue order and keeps up to Concurrency of them running.
// A task leaves the queue only once a slot is free for it. Completion order
// is not tied to start order. The first task to exhaust its retries cancels
// the rest of the batch and its error is returned.
func (d *Dispatcher[T]) Run(ctx context.Context) error {
	if d.source == nil {
		return fmt.Errorf("task source is nil")
	}
	if d.run == nil {
		return fmt.Errorf("task func is nil")
	}

	group, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()
	slots := semaphore.NewWeighted(int64(d.cfg.Concurrency))

	started := 0
	for {
		if err := slots.Acquire(gctx, 1); err != nil {
			break
		}
		if gctx.Err() != nil {
			slots.Release(1)
			break
		}
		task, ok := d.source.Pop()
		if !ok {
			slots.Release(1)
			break
		}
		started++
		group.Go(func() error {
			err := d.runWithRetry(gctx, task)
			if err != nil {
				// Cancel before the slot frees so the driver cannot pop again.
				cancel()
			}
			slots.Release(1)
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.logger.Debug("dispatch complete", zap.Int("tasks", started))
	return nil
}

func (d *Dispatcher[T]) runWithRetry(ctx context.Context, task T) error {
	start := time.Now()
	d.metrics.TaskStarted()

	err := withRetryNotify(ctx, d.cfg.MaxRetries, d.cfg.BaseDelay, func(ctx context.Context) error {
		return d.run(ctx, task)
	}, func(attempt int, delay time.Duration, err error) {
		d.metrics.Retry()
		d.logger.Warn("task failed, retrying",
			zap.Any("task", task),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	})

	d.metrics.TaskFinished(time.Since(start), err)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("task failed", zap.Any("task", task), zap.Error(err))
		}
		return fmt.Errorf("task %v: %w", task, err)
	}
	return nil
}
