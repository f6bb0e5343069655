package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/metrics"
)

const (
	keyReady   = "cloudsec:queue:ready"
	keyDelayed = "cloudsec:queue:delayed"
	keyDead    = "cloudsec:queue:dead"
	keyJobs    = "cloudsec:queue:jobs"
)

// DeadJob is the dead-letter record for a job that exhausted its
// retries or failed non-retryably
type DeadJob struct {
	Job      *Job      `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// RedisQueue is a Redis-backed priority queue. Ready jobs live in a
// sorted set ordered by priority then enqueue time; retries wait in a
// second sorted set scored by their due time.
type RedisQueue struct {
	client *redis.Client
	opts   Options
	log    *logger.Logger
}

// NewRedisQueue creates a queue on the given Redis client
func NewRedisQueue(client *redis.Client, opts Options, log *logger.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		opts:   opts,
		log:    log,
	}
}

// readyScore orders ready jobs by priority first, enqueue time second
func readyScore(priority int, t time.Time) float64 {
	return float64(priority)*1e13 + float64(t.UnixMilli())
}

// Enqueue stores the job payload and adds it to the ready set
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, keyJobs, job.ID, payload)
	pipe.ZAdd(ctx, keyReady, redis.Z{
		Score:  readyScore(job.Priority, job.EnqueuedAt),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Start runs the consumer loop until ctx is canceled
func (q *RedisQueue) Start(ctx context.Context, handler Handler) {
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	q.log.Info("redis queue consumer started")
	for {
		select {
		case <-ctx.Done():
			q.log.Info("redis queue consumer stopped")
			return
		case <-ticker.C:
			if err := q.promoteDelayed(ctx); err != nil && ctx.Err() == nil {
				q.log.ErrorWithErr(err, "failed to promote delayed jobs")
			}
			for {
				job, ok, err := q.popReady(ctx)
				if err != nil {
					if ctx.Err() == nil {
						q.log.ErrorWithErr(err, "failed to pop ready job")
					}
					break
				}
				if !ok {
					break
				}
				q.process(ctx, job, handler)
			}
		}
	}
}

// promoteDelayed moves due retries back into the ready set
func (q *RedisQueue) promoteDelayed(ctx context.Context) error {
	now := time.Now().UnixMilli()
	ids, err := q.client.ZRangeByScore(ctx, keyDelayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range ids {
		payload, err := q.client.HGet(ctx, keyJobs, id).Result()
		if err != nil {
			return err
		}
		var job Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return fmt.Errorf("unmarshal delayed job %s: %w", id, err)
		}

		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, keyDelayed, id)
		pipe.ZAdd(ctx, keyReady, redis.Z{
			Score:  readyScore(job.Priority, time.Now()),
			Member: id,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// popReady takes the most urgent ready job, if any
func (q *RedisQueue) popReady(ctx context.Context) (*Job, bool, error) {
	entries, err := q.client.ZPopMin(ctx, keyReady, 1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}

	id, _ := entries[0].Member.(string)
	payload, err := q.client.HGet(ctx, keyJobs, id).Result()
	if err != nil {
		return nil, false, fmt.Errorf("load job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, false, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, true, nil
}

// process runs the handler and applies the retry schedule on failure
func (q *RedisQueue) process(ctx context.Context, job *Job, handler Handler) {
	err := handler(ctx, job)
	job.Attempts++

	if err == nil {
		q.client.HDel(ctx, keyJobs, job.ID)
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
		q.bury(ctx, job, err)
		return
	}
	q.scheduleRetry(ctx, job)
}

// scheduleRetry re-stores the job and parks it in the delayed set
func (q *RedisQueue) scheduleRetry(ctx context.Context, job *Job) {
	delay := backoffDelay(q.opts.RetryBackoff, job.Attempts)
	due := time.Now().Add(delay)

	payload, err := json.Marshal(job)
	if err != nil {
		q.log.ErrorWithErr(err, "failed to marshal retry job")
		return
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, keyJobs, job.ID, payload)
	pipe.ZAdd(ctx, keyDelayed, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.ErrorWithErr(err, "failed to schedule retry")
		return
	}
	metrics.RecordQueueJob("retried")
}

// bury moves the job to the dead-letter list
func (q *RedisQueue) bury(ctx context.Context, job *Job, cause error) {
	record, err := json.Marshal(DeadJob{
		Job:      job,
		Error:    cause.Error(),
		FailedAt: time.Now(),
	})
	if err != nil {
		q.log.ErrorWithErr(err, "failed to marshal dead-letter record")
		return
	}

	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, keyJobs, job.ID)
	pipe.RPush(ctx, keyDead, record)
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.ErrorWithErr(err, "failed to write dead-letter record")
		return
	}
	metrics.RecordQueueJob("dead")

	q.log.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"alert_id": job.AlertID,
		"attempts": job.Attempts,
	}).Error("delivery job moved to dead letter")
}

// Stats reports the number of jobs per state
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	ready := pipe.ZCard(ctx, keyReady)
	delayed := pipe.ZCard(ctx, keyDelayed)
	dead := pipe.LLen(ctx, keyDead)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}

	return Stats{
		Ready:   ready.Val(),
		Delayed: delayed.Val(),
		Dead:    dead.Val(),
	}, nil
}
