// Package metrics exports Prometheus metrics for log operations and adapts
// them to the txlog observation hook.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ordnungswidrig/dynalog/internal/txlog"
	"github.com/ordnungswidrig/dynalog/pkg/log"
)

var (
	appendAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_append_attempts_total",
		Help: "Total allocation attempts, including retried ones",
	}, []string{"partition"})

	appendConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_append_conflicts_total",
		Help: "Allocation attempts lost to a concurrent writer",
	}, []string{"partition"})

	appendExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_append_exhausted_total",
		Help: "Appends that gave up after the retry budget",
	}, []string{"partition"})

	appendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dynalog_append_seconds",
		Help:    "Histogram of end-to-end append latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"partition"})

	appendBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_append_payload_bytes_total",
		Help: "Total committed payload bytes",
	}, []string{"partition"})

	cursorPages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_cursor_pages_total",
		Help: "Tail query pages fetched",
	}, []string{"partition"})

	cursorRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_cursor_rows_total",
		Help: "Entry rows delivered by tail queries",
	}, []string{"partition"})

	tailTruncations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynalog_tail_truncations_total",
		Help: "Tail streams ended early by a store failure",
	}, []string{"partition"})
)

func init() {
	prometheus.MustRegister(appendAttempts, appendConflicts, appendExhausted,
		appendLatency, appendBytes, cursorPages, cursorRows, tailTruncations)
}

// Hook implements txlog.Hook for one partition.
type Hook struct {
	partition string
}

var _ txlog.Hook = (*Hook)(nil)

// NewHook binds the exported metrics to a partition label.
func NewHook(partition string) *Hook {
	return &Hook{partition: partition}
}

func (h *Hook) AppendAttempt()  { appendAttempts.WithLabelValues(h.partition).Inc() }
func (h *Hook) AppendConflict() { appendConflicts.WithLabelValues(h.partition).Inc() }

func (h *Hook) AppendCommitted(elapsed time.Duration, payloadBytes int) {
	appendLatency.WithLabelValues(h.partition).Observe(elapsed.Seconds())
	appendBytes.WithLabelValues(h.partition).Add(float64(payloadBytes))
}

func (h *Hook) AppendExhausted() { appendExhausted.WithLabelValues(h.partition).Inc() }

func (h *Hook) CursorPage(rows int) {
	cursorPages.WithLabelValues(h.partition).Inc()
	cursorRows.WithLabelValues(h.partition).Add(float64(rows))
}

func (h *Hook) TailTruncated() { tailTruncations.WithLabelValues(h.partition).Inc() }

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string, logger log.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics exporter listening", log.Str("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics exporter stopped", log.Err(err))
		}
	}()
}
