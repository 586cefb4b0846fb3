package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard. A nil *Metrics records nothing.
type Metrics struct {
	// Notification metrics
	NotificationsTotal prometheus.Counter
	Subscribers        prometheus.Gauge

	// Watch metrics
	WatchRebuildsTotal prometheus.Counter
	WatchedSources     prometheus.Gauge
	WatchErrorsTotal   prometheus.Counter

	// Source metrics
	Sources *prometheus.GaugeVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "openspec_ui_notifications_total",
			Help: "Change notifications published to subscribers",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "openspec_ui_subscribers",
			Help: "Number of connected live-update subscribers",
		}),
		WatchRebuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "openspec_ui_watch_rebuilds_total",
			Help: "Number of times the watch session was rebuilt",
		}),
		WatchedSources: factory.NewGauge(prometheus.GaugeOpts{
			Name: "openspec_ui_watched_sources",
			Help: "Number of source roots in the current watch session",
		}),
		WatchErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "openspec_ui_watch_errors_total",
			Help: "Errors reported by the filesystem watch backend",
		}),
		Sources: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "openspec_ui_sources",
			Help: "Configured sources by validity",
		}, []string{"valid"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openspec_ui_http_requests_total",
			Help: "Total HTTP requests handled",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openspec_ui_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordNotification counts one published notification
func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.NotificationsTotal.Inc()
}

// SetSubscribers sets the live subscriber gauge
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

// RecordRebuild records a finished watch rebuild covering watched roots
func (m *Metrics) RecordRebuild(watched int) {
	if m == nil {
		return
	}
	m.WatchRebuildsTotal.Inc()
	m.WatchedSources.Set(float64(watched))
}

// RecordWatchError counts a watch backend error
func (m *Metrics) RecordWatchError() {
	if m == nil {
		return
	}
	m.WatchErrorsTotal.Inc()
}

// SetSources updates the source validity gauges
func (m *Metrics) SetSources(valid, invalid int) {
	if m == nil {
		return
	}
	m.Sources.WithLabelValues("true").Set(float64(valid))
	m.Sources.WithLabelValues("false").Set(float64(invalid))
}

// RecordRequest records a completed request
func (m *Metrics) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// StatusCapturingWriter wraps http.ResponseWriter to capture the status code
type StatusCapturingWriter struct {
	http.ResponseWriter
	StatusCode int
}

// NewStatusCapturingWriter wraps w with a default status of 200.
func NewStatusCapturingWriter(w http.ResponseWriter) *StatusCapturingWriter {
	return &StatusCapturingWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (w *StatusCapturingWriter) WriteHeader(code int) {
	w.StatusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer when it supports flushing (event streams).
func (w *StatusCapturingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack forwards to the underlying writer (websocket upgrades).
func (w *StatusCapturingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.StatusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap returns the underlying ResponseWriter
func (w *StatusCapturingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
