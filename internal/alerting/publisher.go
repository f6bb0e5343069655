package alerting

import (
	"sync"

	"github.com/upcb/cloudsec/internal/domain/alert"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/metrics"
)

// DefaultAdminKey is the subscription key that receives every
// published alert regardless of owner
const DefaultAdminKey = "__admin__"

// SubscribeFunc receives alerts pushed to a subscription
type SubscribeFunc func(*alert.Alert)

// subscription is one registered callback; the pointer identity is
// what the unsubscribe closure removes
type subscription struct {
	fn SubscribeFunc
}

// Publisher fans newly created alerts out to live in-process
// subscribers, keyed by the owning user ID. Subscribing under the
// admin key receives alerts for every user.
type Publisher struct {
	mu       sync.RWMutex
	subs     map[string][]*subscription
	adminKey string
	log      *logger.Logger
}

// NewPublisher creates a publisher. An empty adminKey falls back to
// DefaultAdminKey.
func NewPublisher(adminKey string, log *logger.Logger) *Publisher {
	if adminKey == "" {
		adminKey = DefaultAdminKey
	}
	return &Publisher{
		subs:     make(map[string][]*subscription),
		adminKey: adminKey,
		log:      log,
	}
}

// AdminKey returns the broadcast subscription key
func (p *Publisher) AdminKey() string {
	return p.adminKey
}

// Subscribe registers a callback for alerts owned by userID and
// returns an unsubscribe function. Unsubscribing removes exactly this
// subscription and is safe to call more than once.
func (p *Publisher) Subscribe(userID string, fn SubscribeFunc) func() {
	sub := &subscription{fn: fn}

	p.mu.Lock()
	p.subs[userID] = append(p.subs[userID], sub)
	p.mu.Unlock()
	p.updateGauge()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.remove(userID, sub)
			p.updateGauge()
		})
	}
}

func (p *Publisher) remove(userID string, sub *subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.subs[userID]
	for i, s := range list {
		if s == sub {
			p.subs[userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(p.subs[userID]) == 0 {
		delete(p.subs, userID)
	}
}

// Publish pushes the alert to the owner's subscribers and to every
// admin subscriber, and returns the number of callbacks invoked. A
// panicking callback is isolated and does not stop delivery to the
// rest.
func (p *Publisher) Publish(a *alert.Alert) int {
	p.mu.RLock()
	targets := make([]*subscription, 0, len(p.subs[a.UserID])+len(p.subs[p.adminKey]))
	targets = append(targets, p.subs[a.UserID]...)
	if a.UserID != p.adminKey {
		targets = append(targets, p.subs[p.adminKey]...)
	}
	p.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if p.deliver(sub, a) {
			delivered++
		}
	}

	metrics.RecordPublishedAlert()
	return delivered
}

func (p *Publisher) deliver(sub *subscription, a *alert.Alert) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			p.log.WithFields(map[string]interface{}{
				"alert_id": a.ID,
				"panic":    r,
			}).Error("alert subscriber panicked")
		}
	}()
	sub.fn(a)
	return true
}

// SubscriberCount returns the number of subscriptions for one user
func (p *Publisher) SubscriberCount(userID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs[userID])
}

// TotalSubscribers returns the number of subscriptions across all keys
func (p *Publisher) TotalSubscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := 0
	for _, list := range p.subs {
		total += len(list)
	}
	return total
}

// Stats returns the subscription count per key
func (p *Publisher) Stats() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]int, len(p.subs))
	for key, list := range p.subs {
		out[key] = len(list)
	}
	return out
}

func (p *Publisher) updateGauge() {
	metrics.SetStreamSubscribers(float64(p.TotalSubscribers()))
}
