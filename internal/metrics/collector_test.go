package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

// nextTestNamespace avoids duplicate registration panics across tests, since
// promauto registers with the global registerer.
func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.invocationsTotal)
	assert.NotNil(t, collector.runsTotal)
	assert.NotNil(t, collector.usageEventsEmitted)
}

func TestCollector_RecordInvocation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordInvocation("carrier_vetting", "success", 120*time.Millisecond)
	collector.RecordInvocation("carrier_vetting", "error", 80*time.Millisecond)

	count := testutil.CollectAndCount(collector.invocationsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordRunAndNodes(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordRun("success", time.Second)
	collector.RecordNodeExecuted("trigger")
	collector.RecordNodeExecuted("custom")

	assert.Equal(t, 1, testutil.CollectAndCount(collector.runsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.nodesExecuted))
}

func TestCollector_MeteringCounters(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordUsageEventEmitted("ok")
	collector.RecordUsageEventEmitted("failed")
	collector.RecordUsageEventDropped()

	assert.Equal(t, 2, testutil.CollectAndCount(collector.usageEventsEmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.usageEventsDropped))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/v1/workflows", 200, 10*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/v1/invoke", 500, 20*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(collector.httpRequestsTotal))
}

func TestStatusCodeBuckets(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(99))
}
