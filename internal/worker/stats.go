package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/metrics"
	"github.com/upcb/cloudsec/internal/queue"
)

// StatsCollector periodically snapshots delivery and queue statistics,
// refreshing the queue depth gauges and logging a delivery summary
type StatsCollector struct {
	recorder *alerting.Recorder
	queue    queue.Queue
	cron     *cron.Cron
	log      *logger.Logger
}

// NewStatsCollector creates a collector that runs every minute
func NewStatsCollector(recorder *alerting.Recorder, q queue.Queue, log *logger.Logger) *StatsCollector {
	return &StatsCollector{
		recorder: recorder,
		queue:    q,
		cron:     cron.New(),
		log:      log,
	}
}

// Start schedules the collection job
func (c *StatsCollector) Start() error {
	if _, err := c.cron.AddFunc("@every 1m", c.collect); err != nil {
		return err
	}
	c.cron.Start()
	c.log.Info("stats collector started")
	return nil
}

// Stop halts the schedule and waits for a running collection to finish
func (c *StatsCollector) Stop() {
	<-c.cron.Stop().Done()
	c.log.Info("stats collector stopped")
}

func (c *StatsCollector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if stats, err := c.queue.Stats(ctx); err != nil {
		c.log.ErrorWithErr(err, "failed to read queue stats")
	} else {
		metrics.SetQueueDepth(queue.StateReady, float64(stats.Ready))
		metrics.SetQueueDepth(queue.StateDelayed, float64(stats.Delayed))
		metrics.SetQueueDepth(queue.StateDead, float64(stats.Dead))
	}

	summary := c.recorder.Summary()
	c.log.WithFields(map[string]interface{}{
		"total_alerts":    summary.TotalAlerts,
		"avg_delivery_ms": summary.AverageDeliveryTime,
		"sla_compliance":  summary.SLACompliance,
		"failure_rate":    summary.FailureRate,
	}).Info("delivery stats")
}
