package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/upcb/cloudsec/internal/domain/alert"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/metrics"
)

// DeliveryMetrics captures the timing and per-channel outcomes of one
// alert dispatch
type DeliveryMetrics struct {
	AlertID   string       `json:"alertId"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
	TotalTime int64        `json:"totalTime"` // milliseconds, EndTime - StartTime
	Results   []SendResult `json:"results"`
	WithinSLA bool         `json:"withinSLA"`
}

// DispatcherConfig controls dispatch behavior
type DispatcherConfig struct {
	// SLAThreshold is the delivery time budget for a full dispatch.
	// A dispatch taking strictly longer than this breaches the SLA.
	SLAThreshold time.Duration

	// Parallel fans sends out to all channels concurrently instead of
	// sending one channel at a time
	Parallel bool
}

// Dispatcher fans one alert out to every configured notification
// channel, measures the whole dispatch against the SLA threshold and
// records the outcome
type Dispatcher struct {
	senders  []Sender
	cfg      DispatcherConfig
	recorder *Recorder
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher over the given senders. Only
// senders for configured channels should be passed in; an empty set is
// valid and produces empty dispatches.
func NewDispatcher(senders []Sender, cfg DispatcherConfig, recorder *Recorder, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		senders:  senders,
		cfg:      cfg,
		recorder: recorder,
		log:      log,
	}
}

// Channels returns the names of the registered senders
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.senders))
	for _, s := range d.senders {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch sends the alert over every registered channel and returns
// the delivery metrics. Dispatch itself never fails: channel errors
// are carried in the per-channel results.
func (d *Dispatcher) Dispatch(ctx context.Context, a *alert.Alert, recipient string) DeliveryMetrics {
	start := time.Now()

	results := make([]SendResult, len(d.senders))
	if d.cfg.Parallel && len(d.senders) > 1 {
		var wg sync.WaitGroup
		for i, s := range d.senders {
			wg.Add(1)
			go func(i int, s Sender) {
				defer wg.Done()
				results[i] = s.Send(ctx, a, recipient)
			}(i, s)
		}
		wg.Wait()
	} else {
		for i, s := range d.senders {
			results[i] = s.Send(ctx, a, recipient)
		}
	}

	end := time.Now()
	total := end.Sub(start).Milliseconds()

	m := DeliveryMetrics{
		AlertID:   a.ID,
		StartTime: start,
		EndTime:   end,
		TotalTime: total,
		Results:   results,
		WithinSLA: total <= d.cfg.SLAThreshold.Milliseconds(),
	}

	for _, r := range results {
		metrics.RecordChannelSend(r.Channel, r.Success, time.Duration(r.DeliveryTime)*time.Millisecond)
		if !r.Success {
			d.log.WithFields(map[string]interface{}{
				"alert_id": a.ID,
				"channel":  r.Channel,
				"error":    r.Error,
			}).Warn("alert delivery failed")
		}
	}
	metrics.RecordDispatch(end.Sub(start), m.WithinSLA)

	if !m.WithinSLA {
		d.log.WithFields(map[string]interface{}{
			"alert_id":      a.ID,
			"total_time_ms": total,
			"sla_ms":        d.cfg.SLAThreshold.Milliseconds(),
		}).Warn("alert delivery breached SLA")
	}

	if d.recorder != nil {
		d.recorder.Record(m)
	}

	d.log.WithFields(map[string]interface{}{
		"alert_id":      a.ID,
		"channels":      len(results),
		"total_time_ms": total,
		"within_sla":    m.WithinSLA,
	}).Info("alert dispatched")

	return m
}
