// Package worker runs a periodic job until it is shut down.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
)

// DefaultInterval is used when a worker is created with a non-positive interval.
const DefaultInterval = 15 * time.Second

const shutdownTimeout = 60 * time.Second

// Job is one unit of periodic work. A Process error is logged and the job is
// retried on the next tick.
type Job interface {
	Name() string
	Process(ctx context.Context) error
}

type Worker struct {
	job      Job
	interval time.Duration

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func New(job Job, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		job:      job,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Worker) Shutdown() error {
	return w.ShutdownWithContext(context.Background())
}

func (w *Worker) ShutdownWithContext(ctx context.Context) (err error) {
	w.quitOnce.Do(func() {
		close(w.quit)
		select {
		case <-w.done:
		case <-time.After(shutdownTimeout):
			err = errors.Wrapf(errs.Timeout, "worker %s shutdown timeout", w.job.Name())
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "worker shutdown context canceled")
		}
	})
	return
}

// Run processes the job once right away, then on every interval.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)

	ctx = logger.WithContext(ctx,
		slog.String("package", "worker"),
		slog.String("job", w.job.Name()),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.process(ctx)
	for {
		select {
		case <-w.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping worker")
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Worker) process(ctx context.Context) {
	startAt := time.Now()
	if err := w.job.Process(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.ErrorContext(ctx, "Worker job failed, retrying on next interval", err)
		return
	}
	logger.DebugContext(ctx, "Worker job done", slogx.Duration("duration", time.Since(startAt)))
}
