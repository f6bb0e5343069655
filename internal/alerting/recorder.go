package alerting

import (
	"math"
	"sync"
)

// Health classification of the delivery pipeline
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

// Summary aggregates the recorded delivery metrics
type Summary struct {
	TotalAlerts         int     `json:"totalAlerts"`
	AverageDeliveryTime int64   `json:"averageDeliveryTime"` // milliseconds
	SLACompliance       float64 `json:"slaCompliance"`       // percent
	FailureRate         float64 `json:"failureRate"`         // percent
}

// Recorder keeps an in-memory history of delivery metrics and derives
// aggregate statistics from it
type Recorder struct {
	mu       sync.Mutex
	records  []DeliveryMetrics
	capacity int
}

// NewRecorder creates a recorder. capacity bounds the retained history;
// zero means unbounded.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{capacity: capacity}
}

// Record appends one dispatch outcome, evicting the oldest entry when
// the capacity is reached
func (r *Recorder) Record(m DeliveryMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capacity > 0 && len(r.records) >= r.capacity {
		drop := len(r.records) - r.capacity + 1
		r.records = append(r.records[:0], r.records[drop:]...)
	}
	r.records = append(r.records, m)
}

// All returns a copy of the retained history, oldest first
func (r *Recorder) All() []DeliveryMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DeliveryMetrics, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of retained records
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Reset clears the retained history
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// Summary computes aggregate statistics over the retained history.
// With no records it reports full SLA compliance and a zero failure
// rate.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return Summary{SLACompliance: 100}
	}

	var totalTime int64
	var withinSLA int
	var sends, failures int
	for _, m := range r.records {
		totalTime += m.TotalTime
		if m.WithinSLA {
			withinSLA++
		}
		sends += len(m.Results)
		for _, res := range m.Results {
			if !res.Success {
				failures++
			}
		}
	}

	n := len(r.records)
	s := Summary{
		TotalAlerts:         n,
		AverageDeliveryTime: int64(math.Round(float64(totalTime) / float64(n))),
		SLACompliance:       round2(float64(withinSLA) / float64(n) * 100),
	}
	if sends > 0 {
		s.FailureRate = round2(float64(failures) / float64(sends) * 100)
	}
	return s
}

// Health classifies the pipeline from its SLA compliance: at or above
// healthyThreshold is healthy, at or above degradedThreshold is
// degraded, anything lower is critical.
func (r *Recorder) Health(healthyThreshold, degradedThreshold float64) string {
	compliance := r.Summary().SLACompliance
	switch {
	case compliance >= healthyThreshold:
		return HealthHealthy
	case compliance >= degradedThreshold:
		return HealthDegraded
	default:
		return HealthCritical
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
