package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"folio_backend/internal/platform/queue"
)

type JobProcessor interface {
	Process(ctx context.Context, job queue.Job) error
}

// JobRecorder counts processed jobs by outcome.
type JobRecorder interface {
	RecordJob(name string, err error)
}

// Worker consumes the data gathering queue with a fixed number of goroutines.
type Worker struct {
	queue        queue.Queue
	processor    JobProcessor
	metrics      JobRecorder
	concurrency  int
	pollInterval time.Duration
}

func NewWorker(q queue.Queue, processor JobProcessor, metrics JobRecorder, concurrency int, pollInterval time.Duration) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		queue:        q,
		processor:    processor,
		metrics:      metrics,
		concurrency:  concurrency,
		pollInterval: pollInterval,
	}
}

// Run processes jobs until ctx is cancelled. Failed jobs are logged and dropped.
func (w *Worker) Run(ctx context.Context) error {
	return w.run(ctx, false)
}

// Drain processes jobs until the queue is empty.
func (w *Worker) Drain(ctx context.Context) error {
	return w.run(ctx, true)
}

func (w *Worker) run(ctx context.Context, stopWhenEmpty bool) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range w.concurrency {
		g.Go(func() error {
			return w.loop(gctx, i, stopWhenEmpty)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context, id int, stopWhenEmpty bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := w.queue.Pop(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			if stopWhenEmpty {
				return nil
			}
			if err := sleep(ctx, w.pollInterval); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			slog.Error("failed to pop job", "worker", id, "error", err)
			if err := sleep(ctx, w.pollInterval); err != nil {
				return err
			}
			continue
		}
		w.handle(ctx, id, *job)
	}
}

func (w *Worker) handle(ctx context.Context, id int, job queue.Job) {
	start := time.Now()
	err := w.processor.Process(ctx, job)
	if err != nil {
		slog.Error("job failed", "worker", id, "jobId", job.ID, "name", job.Name, "error", err)
	} else {
		slog.Debug("job done", "worker", id, "jobId", job.ID, "name", job.Name, "duration", time.Since(start))
	}
	if w.metrics != nil {
		w.metrics.RecordJob(job.Name, err)
	}
	// the job id is released even when ctx is already cancelled
	if cerr := w.queue.Complete(context.WithoutCancel(ctx), job.ID); cerr != nil {
		slog.Warn("failed to complete job", "jobId", job.ID, "error", cerr)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
