package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned when enqueueing on a stopped or unstarted queue.
var ErrQueueClosed = errors.New("queue closed")

// Handler processes one payload.
type Handler[T any] func(context.Context, T) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type job[T any] struct {
	payload T
	attempt int
}

// Queue is an in-memory dispatcher that retries failed payloads with a fixed
// delay. Stop drains what is already buffered.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     QueueConfig

	jobs    chan job[T]
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewQueue builds a queue with the provided handler.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{name: name, handler: handler, cfg: cfg, jobs: make(chan job[T], cfg.BufferSize)}
}

// Start launches the workers. Calls after the first are no-ops.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.started = true
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Enqueue buffers a payload. It fails fast when the buffer is full so callers
// on a request path never block.
func (q *Queue[T]) Enqueue(payload T) error {
	return q.push(job[T]{payload: payload})
}

// Stop rejects new payloads, waits for pending retries and drains the buffer.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.closed = true
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.retries.Wait()
	close(q.jobs)
	q.wg.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name))
}

func (q *Queue[T]) push(j job[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.closed {
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	}
	select {
	case q.jobs <- j:
		return nil
	default:
		return fmt.Errorf("queue %s is full", q.name)
	}
}

func (q *Queue[T]) worker(ctx context.Context) {
	defer q.wg.Done()
	for j := range q.jobs {
		if err := q.handler(ctx, j.payload); err != nil {
			q.handleFailure(j, err)
		}
	}
}

func (q *Queue[T]) handleFailure(j job[T], err error) {
	j.attempt++
	if j.attempt > q.cfg.MaxRetries {
		q.cfg.Logger.Error("job exceeded retries", zap.String("queue", q.name), zap.Int("attempts", j.attempt), zap.Error(err))
		return
	}
	q.cfg.Logger.Warn("job failed, retrying", zap.String("queue", q.name), zap.Int("attempt", j.attempt), zap.Error(err))

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.cfg.Logger.Error("dropping failed job on shutdown", zap.String("queue", q.name), zap.Error(err))
		return
	}
	q.retries.Add(1)
	q.mu.RUnlock()

	go func() {
		defer q.retries.Done()
		time.Sleep(q.cfg.RetryDelay)
		select {
		case q.jobs <- j:
		default:
			q.cfg.Logger.Error("failed to requeue job", zap.String("queue", q.name))
		}
	}()
}
