package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the bridge's Prometheus instruments.
type Collector struct {
	// Session metrics
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter

	// Stream metrics
	eventsTotal      *prometheus.CounterVec
	framesDropped    prometheus.Counter
	outboundMessages *prometheus.CounterVec

	// Pipeline metrics
	pipelineDuration prometheus.Histogram
	adapterFailures  *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the bridge instruments under the given namespace
// on the default registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of live call sessions",
	})

	c.sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Total number of call sessions created",
	})

	c.eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Inbound stream events by type",
		},
		[]string{"event"},
	)

	c.framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Inbound media frames shed while a session was busy",
	})

	c.outboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound stream messages by type",
		},
		[]string{"event"},
	)

	c.pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of one utterance pipeline cycle",
		Buckets:   prometheus.DefBuckets,
	})

	c.adapterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_failures_total",
			Help:      "External adapter failures by adapter",
		},
		[]string{"adapter"},
	)

	return c
}

// SessionOpened records a new live session.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
	c.sessionsTotal.Inc()
}

// SessionClosed records a session teardown.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
}

// EventReceived counts one inbound stream event.
func (c *Collector) EventReceived(event string) {
	if c == nil {
		return
	}
	c.eventsTotal.WithLabelValues(event).Inc()
}

// FrameDropped counts one shed media frame.
func (c *Collector) FrameDropped() {
	if c == nil {
		return
	}
	c.framesDropped.Inc()
}

// MessageSent counts one outbound stream message.
func (c *Collector) MessageSent(event string) {
	if c == nil {
		return
	}
	c.outboundMessages.WithLabelValues(event).Inc()
}

// ObservePipeline records the duration of one pipeline cycle.
func (c *Collector) ObservePipeline(d time.Duration) {
	if c == nil {
		return
	}
	c.pipelineDuration.Observe(d.Seconds())
}

// AdapterFailure counts a failed external adapter call.
func (c *Collector) AdapterFailure(adapter string) {
	if c == nil {
		return
	}
	c.adapterFailures.WithLabelValues(adapter).Inc()
}
