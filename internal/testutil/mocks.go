package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/domain/alert"
	"github.com/upcb/cloudsec/internal/domain/user"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/queue"
)

// NewTestLogger returns a quiet logger for tests
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "fatal", Format: "json"})
}

// MockAlertRepository is a function-field mock of alert.Repository
type MockAlertRepository struct {
	CreateFn     func(ctx context.Context, a *alert.Alert) error
	GetByIDFn    func(ctx context.Context, id string) (*alert.Alert, error)
	UpdateFn     func(ctx context.Context, a *alert.Alert) error
	ListByUserFn func(ctx context.Context, userID string, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error)
}

func (m *MockAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id string) (*alert.Alert, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, apperrors.NotFound("alert")
}

func (m *MockAlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, a)
	}
	return nil
}

func (m *MockAlertRepository) ListByUser(ctx context.Context, userID string, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID, filter, limit, offset)
	}
	return nil, 0, nil
}

// MockUserRepository is a function-field mock of user.Repository
type MockUserRepository struct {
	GetByIDFn func(ctx context.Context, id string) (*user.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, apperrors.NotFound("user")
}

// StubSender is a configurable alerting.Sender that records its calls
type StubSender struct {
	mu      sync.Mutex
	Channel string
	Succeed bool
	ErrMsg  string
	Delay   time.Duration

	calls []string // alert IDs in invocation order
}

func (s *StubSender) Name() string {
	return s.Channel
}

func (s *StubSender) Send(_ context.Context, a *alert.Alert, _ string) alerting.SendResult {
	s.mu.Lock()
	s.calls = append(s.calls, a.ID)
	s.mu.Unlock()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	return alerting.SendResult{
		Channel:      s.Channel,
		Success:      s.Succeed,
		DeliveryTime: s.Delay.Milliseconds(),
		Error:        s.ErrMsg,
	}
}

// Calls returns the alert IDs the sender was invoked with
func (s *StubSender) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// MockQueue is a function-field mock of queue.Queue
type MockQueue struct {
	mu        sync.Mutex
	EnqueueFn func(ctx context.Context, job *queue.Job) error
	StatsFn   func(ctx context.Context) (queue.Stats, error)

	enqueued []*queue.Job
}

func (m *MockQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.mu.Lock()
	m.enqueued = append(m.enqueued, job)
	m.mu.Unlock()

	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, job)
	}
	return nil
}

func (m *MockQueue) Start(ctx context.Context, handler queue.Handler) {}

func (m *MockQueue) Stats(ctx context.Context) (queue.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return queue.Stats{}, nil
}

// Enqueued returns the jobs handed to Enqueue, in order
func (m *MockQueue) Enqueued() []*queue.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*queue.Job, len(m.enqueued))
	copy(out, m.enqueued)
	return out
}

// NewAlert builds a minimal alert for tests
func NewAlert(id, userID, severity string) *alert.Alert {
	return &alert.Alert{
		ID:            id,
		UserID:        userID,
		Title:         "Public S3 bucket detected",
		Description:   "Bucket allows anonymous read access",
		Severity:      severity,
		Status:        alert.StatusOpen,
		ResourceType:  "s3_bucket",
		ResourceID:    "arn:aws:s3:::example-bucket",
		CloudProvider: alert.ProviderAWS,
		CreatedAt:     time.Now(),
	}
}
