package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/danmuck/oestream/internal/protocol"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	streamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Verbose messages decoded, by envelope type.",
		},
		[]string{"type"},
	)
	streamDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "stream",
			Name:      "dropped_total",
			Help:      "Verbose messages dropped, by error class.",
		},
		[]string{"reason"},
	)
	streamGaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "stream",
			Name:      "sequence_gaps_total",
			Help:      "Breaks in the server message numbering.",
		},
	)
	streamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "stream",
			Name:      "requests_total",
			Help:      "Requests on the event channel, by kind and result.",
		},
		[]string{"kind", "result"},
	)
	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Name:      "reconnects_total",
			Help:      "Request channel re-creations.",
		},
		[]string{"component"},
	)
	listenerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "listener",
			Name:      "messages_total",
			Help:      "Compact messages decoded, by tag.",
		},
		[]string{"tag"},
	)
	listenerDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "listener",
			Name:      "dropped_total",
			Help:      "Compact messages dropped, by error class.",
		},
		[]string{"reason"},
	)
	controlCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "control",
			Name:      "commands_total",
			Help:      "Remote control commands, by command and result.",
		},
		[]string{"command", "result"},
	)
	controlDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oestream",
			Subsystem: "control",
			Name:      "command_duration_seconds",
			Help:      "Remote control round trip in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oestream",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oestream",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Registry returns the private registry every oestream collector lives in.
func Registry() *prometheus.Registry {
	RegisterMetrics()
	return registry
}

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			streamMessages, streamDrops, streamGaps, streamRequests, reconnects,
			listenerMessages, listenerDrops,
			controlCommands, controlDuration,
			httpRequests, httpDuration,
		)
	})
}

// ErrorReason maps an error onto a low-cardinality label.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, protocol.ErrChannel):
		return "channel"
	case errors.Is(err, protocol.ErrFraming):
		return "framing"
	case errors.Is(err, protocol.ErrDecode):
		return "decode"
	case errors.Is(err, protocol.ErrProtocol):
		return "protocol"
	case errors.Is(err, protocol.ErrConnectionLost):
		return "connection_lost"
	default:
		return "other"
	}
}

func RecordStreamMessage(kind string) {
	RegisterMetrics()
	streamMessages.WithLabelValues(kind).Inc()
}

func RecordStreamDrop(err error) {
	RegisterMetrics()
	streamDrops.WithLabelValues(ErrorReason(err)).Inc()
}

func RecordSequenceGap() {
	RegisterMetrics()
	streamGaps.Inc()
}

func RecordRequest(kind, result string) {
	RegisterMetrics()
	streamRequests.WithLabelValues(kind, result).Inc()
}

func RecordReconnect(component string) {
	RegisterMetrics()
	reconnects.WithLabelValues(component).Inc()
}

func RecordListenerMessage(tag string) {
	RegisterMetrics()
	listenerMessages.WithLabelValues(tag).Inc()
}

func RecordListenerDrop(err error) {
	RegisterMetrics()
	listenerDrops.WithLabelValues(ErrorReason(err)).Inc()
}

func RecordControlCommand(command string, err error, duration time.Duration) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = ErrorReason(err)
	}
	controlCommands.WithLabelValues(command, result).Inc()
	controlDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
