package keyops

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts dispatched key operations by operation,
	// target kind, and outcome.
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyops_operations_total",
			Help: "Total number of dispatched key operations",
		},
		[]string{"operation", "target", "status"},
	)
	// operationDuration is the latency of the backend call.
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keyops_operation_duration_seconds",
			Help:    "Backend key operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "target"},
	)
)

func observe(op Operation, target TargetKind, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(op.String(), target.String(), status).Inc()
	operationDuration.WithLabelValues(op.String(), target.String()).Observe(d.Seconds())
}
