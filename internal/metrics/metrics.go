package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	once sync.Once

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildops",
			Name:      "operations_total",
			Help:      "Engine operations by name and result.",
		},
		[]string{"operation", "result"},
	)

	snapshotWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildops",
			Name:      "snapshot_writes_total",
			Help:      "Collection snapshot writes by collection and result.",
		},
		[]string{"collection", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildops",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route.",
		},
		[]string{"route"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(operations, snapshotWrites, httpRequests)
	})
}

// IncOperation counts an engine operation; err decides the result label.
func IncOperation(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	operations.WithLabelValues(operation, result).Inc()
}

func IncSnapshotWrite(collection string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	snapshotWrites.WithLabelValues(collection, result).Inc()
}

// IncHTTP increments the counter for a route pattern.
func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}
