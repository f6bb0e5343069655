package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudsec",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudsec",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Alert delivery metrics
	channelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudsec",
			Subsystem: "delivery",
			Name:      "channel_sends_total",
			Help:      "Total number of per-channel send attempts",
		},
		[]string{"channel", "status"},
	)

	channelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudsec",
			Subsystem: "delivery",
			Name:      "channel_send_duration_seconds",
			Help:      "Duration of a single channel send in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)

	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cloudsec",
			Subsystem: "delivery",
			Name:      "dispatch_duration_seconds",
			Help:      "Total duration of one alert dispatch across all channels",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
	)

	slaBreachesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cloudsec",
			Subsystem: "delivery",
			Name:      "sla_breaches_total",
			Help:      "Number of dispatches that exceeded the SLA threshold",
		},
	)

	// Realtime stream metrics
	streamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cloudsec",
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of live alert stream subscriptions",
		},
	)

	publishedAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cloudsec",
			Subsystem: "stream",
			Name:      "published_alerts_total",
			Help:      "Number of alerts pushed to the realtime publisher",
		},
	)

	// Work queue metrics
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cloudsec",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of jobs per queue state",
		},
		[]string{"state"},
	)

	queueJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudsec",
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Total number of processed delivery jobs",
		},
		[]string{"status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordChannelSend records one per-channel send attempt
func RecordChannelSend(channel string, success bool, duration time.Duration) {
	status := "ok"
	if !success {
		status = "failed"
	}
	channelSendsTotal.WithLabelValues(channel, status).Inc()
	channelSendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDispatch records one full dispatch
func RecordDispatch(duration time.Duration, withinSLA bool) {
	dispatchDuration.Observe(duration.Seconds())
	if !withinSLA {
		slaBreachesTotal.Inc()
	}
}

// SetStreamSubscribers sets the live subscription gauge
func SetStreamSubscribers(count float64) {
	streamSubscribers.Set(count)
}

// RecordPublishedAlert counts one alert handed to the realtime publisher
func RecordPublishedAlert() {
	publishedAlertsTotal.Inc()
}

// SetQueueDepth sets the queue depth gauge for a job state
func SetQueueDepth(state string, count float64) {
	queueDepth.WithLabelValues(state).Set(count)
}

// RecordQueueJob counts one processed delivery job
func RecordQueueJob(status string) {
	queueJobsTotal.WithLabelValues(status).Inc()
}
