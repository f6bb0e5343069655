package queue

import (
	"context"
	"errors"
	"time"

	"github.com/upcb/cloudsec/internal/domain/alert"
)

// Job states reported by Stats
const (
	StateReady   = "ready"
	StateDelayed = "delayed"
	StateDead    = "dead"
)

// ErrNonRetryable marks a handler failure that must not be retried.
// The job moves straight to the dead-letter store.
var ErrNonRetryable = errors.New("non-retryable job failure")

// Job is one queued alert delivery
type Job struct {
	ID         string    `json:"id"`
	AlertID    string    `json:"alert_id"`
	UserID     string    `json:"user_id"`
	Priority   int       `json:"priority"` // lower is more urgent
	Attempts   int       `json:"attempts"` // completed attempts
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler processes one job. Returning an error wrapped around
// ErrNonRetryable skips the retry schedule.
type Handler func(ctx context.Context, job *Job) error

// Stats is a point-in-time count of jobs per state
type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

// Options controls retry behavior and the consumer poll cadence
type Options struct {
	// MaxAttempts is the total number of tries per job, first attempt
	// included
	MaxAttempts int

	// RetryBackoff is the delay before the first retry; each further
	// retry doubles it
	RetryBackoff time.Duration

	// PollInterval is how often the consumer checks for work
	PollInterval time.Duration
}

// Queue is a priority delivery queue with delayed retries and a
// dead-letter store
type Queue interface {
	// Enqueue adds a job to the ready set
	Enqueue(ctx context.Context, job *Job) error

	// Start runs the consumer loop until ctx is canceled, feeding
	// ready jobs to the handler
	Start(ctx context.Context, handler Handler)

	// Stats reports the number of jobs per state
	Stats(ctx context.Context) (Stats, error)
}

// PriorityForSeverity maps an alert severity to a job priority; more
// urgent severities get lower numbers
func PriorityForSeverity(severity string) int {
	switch severity {
	case alert.SeverityCritical:
		return 1
	case alert.SeverityHigh:
		return 2
	case alert.SeverityMedium:
		return 3
	case alert.SeverityLow:
		return 4
	default:
		return 5
	}
}

// isNonRetryable reports whether the handler error forbids a retry
func isNonRetryable(err error) bool {
	return errors.Is(err, ErrNonRetryable)
}

// backoffDelay returns the wait before the next attempt: the base
// delay doubled for every retry already taken
func backoffDelay(base time.Duration, attempts int) time.Duration {
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}
