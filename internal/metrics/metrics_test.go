package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue reads a counter from the default registry by name and labels.
func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/api/v1/test")
	})
	assert.Equal(t, float64(1), counterValue(t, "buildops_http_requests_total", map[string]string{"route": "/api/v1/test"}))

	IncOperation("test_op", nil)
	IncOperation("test_op", errors.New("boom"))
	IncOperation("test_op", errors.New("boom"))
	assert.Equal(t, float64(1), counterValue(t, "buildops_operations_total", map[string]string{"operation": "test_op", "result": ResultOK}))
	assert.Equal(t, float64(2), counterValue(t, "buildops_operations_total", map[string]string{"operation": "test_op", "result": ResultError}))

	IncSnapshotWrite("test_collection", nil)
	assert.Equal(t, float64(1), counterValue(t, "buildops_snapshot_writes_total", map[string]string{"collection": "test_collection", "result": ResultOK}))
}
