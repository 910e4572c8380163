package email

import (
	"context"
	"errors"
	"sync"
	"time"

	"gpms-backend/internal/logger"
	"gpms-backend/internal/metrics"

	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("email queue is full")
	ErrQueueClosed = errors.New("email queue is closed")
)

// Job is an email waiting to be sent. OnSent runs once after a successful send.
type Job struct {
	ID        string
	Message   Message
	Retries   int
	CreatedAt time.Time
	OnSent    func(ctx context.Context)
}

// Queue sends emails on a fixed pool of workers and retries failures with
// quadratic backoff.
type Queue struct {
	sender     Sender
	jobs       chan Job
	maxRetries int
	workers    int
	backoff    func(attempt int) time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type QueueOption func(*Queue)

// WithBackoff overrides the retry delay
func WithBackoff(fn func(attempt int) time.Duration) QueueOption {
	return func(q *Queue) {
		if fn != nil {
			q.backoff = fn
		}
	}
}

func NewQueue(sender Sender, workers, queueSize, maxRetries int, opts ...QueueOption) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	q := &Queue{
		sender:     sender,
		jobs:       make(chan Job, queueSize),
		maxRetries: maxRetries,
		workers:    workers,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the workers. They exit when ctx is cancelled or the queue is closed.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Close stops accepting jobs and waits for the workers to drain the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := logger.Get().With("component", "email_queue", "worker", id, "sender", q.sender.Name())
	log.Debug("Email worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("Email worker stopping", "reason", ctx.Err())
			return
		case job, ok := <-q.jobs:
			if !ok {
				log.Debug("Email worker stopping", "reason", "queue closed")
				return
			}
			metrics.EmailQueueDepth.Dec()
			q.process(ctx, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, job Job) {
	for {
		err := q.sender.Send(ctx, job.Message)
		if err == nil {
			metrics.Deliveries.WithLabelValues("email", "sent").Inc()
			logger.Debug("Email sent", "jobID", job.ID, "to", job.Message.To)
			if job.OnSent != nil {
				job.OnSent(ctx)
			}
			return
		}

		if job.Retries >= q.maxRetries {
			metrics.Deliveries.WithLabelValues("email", "failed").Inc()
			logger.Error("Email failed after retries", "jobID", job.ID, "to", job.Message.To, "retries", job.Retries, "error", err)
			return
		}

		job.Retries++
		delay := q.backoff(job.Retries)
		logger.Warn("Retrying email", "jobID", job.ID, "attempt", job.Retries, "maxRetries", q.maxRetries, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Enqueue adds a message without blocking. It returns the job id.
func (q *Queue) Enqueue(msg Message, onSent func(ctx context.Context)) (string, error) {
	if msg.To == "" {
		return "", ErrNoRecipient
	}
	job := Job{
		ID:        "email-" + uuid.NewString(),
		Message:   msg,
		CreatedAt: time.Now(),
		OnSent:    onSent,
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		metrics.EmailQueueDepth.Inc()
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}
