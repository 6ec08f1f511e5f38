package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the inspect server.",
		},
		[]string{"session", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gridlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"session", "method", "path", "status"},
	)
	rpcMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridlink",
			Subsystem: "rpc",
			Name:      "messages_total",
			Help:      "msgpack-rpc messages by direction and kind.",
		},
		[]string{"direction", "kind"},
	)
	rpcUnknownResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gridlink",
			Subsystem: "rpc",
			Name:      "unknown_responses_total",
			Help:      "Responses whose id matched no pending request.",
		},
	)
	rpcPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gridlink",
			Subsystem: "rpc",
			Name:      "pending_requests",
			Help:      "Outstanding requests awaiting a response.",
		},
	)
	rpcCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gridlink",
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Request round-trip time in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "outcome"},
	)
	redrawEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridlink",
			Subsystem: "redraw",
			Name:      "events_total",
			Help:      "Redraw event tuples applied, by event name.",
		},
		[]string{"event"},
	)
	redrawViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridlink",
			Subsystem: "redraw",
			Name:      "violations_total",
			Help:      "Redraw tuples dropped for protocol violations.",
		},
		[]string{"event"},
	)
	redrawFlushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gridlink",
			Subsystem: "redraw",
			Name:      "flushes_total",
			Help:      "Flush events delivered to the session.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			rpcMessages,
			rpcUnknownResponses,
			rpcPending,
			rpcCallDuration,
			redrawEvents,
			redrawViolations,
			redrawFlushes,
		)
	})
}

func RecordHTTPRequest(sessionID, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(sessionID, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(sessionID, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordRPCMessage counts one message; direction is "in" or "out".
func RecordRPCMessage(direction, kind string) {
	RegisterMetrics()
	rpcMessages.WithLabelValues(direction, kind).Inc()
}

func RecordUnknownResponse() {
	RegisterMetrics()
	rpcUnknownResponses.Inc()
}

func AddPendingRequests(delta int) {
	RegisterMetrics()
	rpcPending.Add(float64(delta))
}

func RecordCall(method, outcome string, duration time.Duration) {
	RegisterMetrics()
	rpcCallDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

func RecordRedrawEvent(event string) {
	RegisterMetrics()
	redrawEvents.WithLabelValues(event).Inc()
}

func RecordRedrawViolation(event string) {
	RegisterMetrics()
	redrawViolations.WithLabelValues(event).Inc()
}

func RecordFlush() {
	RegisterMetrics()
	redrawFlushes.Inc()
}
