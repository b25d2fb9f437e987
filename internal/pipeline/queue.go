package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one queued document with its assigned id.
type Job struct {
	ID    string
	Input Input
}

// ResultHandler receives every finished job. Handlers run on worker
// goroutines and must be safe for concurrent use.
type ResultHandler func(jobID string, res *Result)

// Queue fans documents out to a fixed worker pool. Enqueue blocks when the
// buffer is full, which is the backpressure a directory walk wants.
type Queue struct {
	pipe    *Pipeline
	handler ResultHandler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(pipe *Pipeline, handler ResultHandler, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		pipe:    pipe,
		handler: handler,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker_started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res := q.pipe.Analyze(ctx, job.Input)
					cancel()

					if res.Error != nil {
						q.logger.Error("queue.job_failed", "worker_id", workerID,
							"job_id", job.ID, "file_path", job.Input.FilePath, "code", res.Error.Code)
					} else {
						q.logger.Info("queue.job_done", "worker_id", workerID,
							"job_id", job.ID, "file_path", job.Input.FilePath)
					}
					if q.handler != nil {
						q.handler(job.ID, res)
					}
				}

				q.logger.Info("queue.worker_stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue assigns a job id and queues the input. A closed queue drops the
// input and reports the id anyway so callers can log it.
func (q *Queue) Enqueue(ctx context.Context, input Input) (string, error) {
	jobID := uuid.NewString()

	// the lock is held across the send so Shutdown cannot close the channel
	// under a blocked producer
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue_after_close", "job_id", jobID, "file_path", input.FilePath)
		return jobID, context.Canceled
	}

	select {
	case q.ch <- Job{ID: jobID, Input: input}:
		q.logger.Debug("queue.enqueued", "job_id", jobID, "file_path", input.FilePath)
		return jobID, nil
	case <-ctx.Done():
		return jobID, ctx.Err()
	}
}

// Shutdown stops intake and waits for the workers to drain, bounded by ctx.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("queue.drained")
	}
}
