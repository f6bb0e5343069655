package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/metrics"
)

// readyEntry keeps enqueue order for priority ties
type readyEntry struct {
	job *Job
	seq int64
}

type delayedEntry struct {
	job *Job
	due time.Time
}

// MemoryQueue is an in-process queue with the same retry and
// dead-letter semantics as the Redis queue. It backs local development
// and tests.
type MemoryQueue struct {
	mu      sync.Mutex
	ready   []readyEntry
	delayed []delayedEntry
	dead    []DeadJob
	seq     int64

	opts Options
	log  *logger.Logger
}

// NewMemoryQueue creates an in-process queue
func NewMemoryQueue(opts Options, log *logger.Logger) *MemoryQueue {
	return &MemoryQueue{
		opts: opts,
		log:  log,
	}
}

// Enqueue adds a job to the ready set
func (q *MemoryQueue) Enqueue(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	q.ready = append(q.ready, readyEntry{job: job, seq: q.seq})
	q.sortReadyLocked()
	return nil
}

func (q *MemoryQueue) sortReadyLocked() {
	sort.SliceStable(q.ready, func(i, j int) bool {
		if q.ready[i].job.Priority != q.ready[j].job.Priority {
			return q.ready[i].job.Priority < q.ready[j].job.Priority
		}
		return q.ready[i].seq < q.ready[j].seq
	})
}

// Start runs the consumer loop until ctx is canceled
func (q *MemoryQueue) Start(ctx context.Context, handler Handler) {
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	q.log.Info("in-memory queue consumer started")
	for {
		select {
		case <-ctx.Done():
			q.log.Info("in-memory queue consumer stopped")
			return
		case <-ticker.C:
			q.promoteDelayed()
			for {
				job, ok := q.popReady()
				if !ok {
					break
				}
				q.process(ctx, job, handler)
			}
		}
	}
}

// ProcessOne pops and handles a single ready job, promoting due
// retries first. It reports whether a job was processed.
func (q *MemoryQueue) ProcessOne(ctx context.Context, handler Handler) bool {
	q.promoteDelayed()
	job, ok := q.popReady()
	if !ok {
		return false
	}
	q.process(ctx, job, handler)
	return true
}

func (q *MemoryQueue) promoteDelayed() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	remaining := q.delayed[:0]
	for _, e := range q.delayed {
		if e.due.After(now) {
			remaining = append(remaining, e)
			continue
		}
		q.seq++
		q.ready = append(q.ready, readyEntry{job: e.job, seq: q.seq})
	}
	q.delayed = remaining
	q.sortReadyLocked()
}

func (q *MemoryQueue) popReady() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 {
		return nil, false
	}
	job := q.ready[0].job
	q.ready = q.ready[1:]
	return job, true
}

func (q *MemoryQueue) process(ctx context.Context, job *Job, handler Handler) {
	err := handler(ctx, job)
	job.Attempts++

	if err == nil {
		metrics.RecordQueueJob("completed")
		return
	}

	q.log.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"alert_id": job.AlertID,
		"attempts": job.Attempts,
		"error":    err.Error(),
	}).Warn("delivery job failed")

	if isNonRetryable(err) || job.Attempts >= q.opts.MaxAttempts {
		q.mu.Lock()
		q.dead = append(q.dead, DeadJob{Job: job, Error: err.Error(), FailedAt: time.Now()})
		q.mu.Unlock()
		metrics.RecordQueueJob("dead")
		return
	}

	due := time.Now().Add(backoffDelay(q.opts.RetryBackoff, job.Attempts))
	q.mu.Lock()
	q.delayed = append(q.delayed, delayedEntry{job: job, due: due})
	q.mu.Unlock()
	metrics.RecordQueueJob("retried")
}

// Stats reports the number of jobs per state
func (q *MemoryQueue) Stats(_ context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Ready:   int64(len(q.ready)),
		Delayed: int64(len(q.delayed)),
		Dead:    int64(len(q.dead)),
	}, nil
}

// Dead returns a copy of the dead-letter records
func (q *MemoryQueue) Dead() []DeadJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadJob, len(q.dead))
	copy(out, q.dead)
	return out
}
