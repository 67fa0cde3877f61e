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

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.turnsTotal)
	assert.NotNil(t, collector.turnDuration)
	assert.NotNil(t, collector.escalationsTotal)
	assert.NotNil(t, collector.externalCallDuration)
}

func TestCollector_RecordTurn(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordTurn("APPOINTMENT_BOOKING", "ok", 120*time.Millisecond)
	collector.RecordTurn("APPOINTMENT_BOOKING", "fallback", 80*time.Millisecond)

	count := testutil.CollectAndCount(collector.turnsTotal)
	assert.Greater(t, count, 0)
}

func TestCollector_RecordFlowLifecycle(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordFlowStarted("healthcare_appointment")
	assert.Equal(t, 1.0, testutil.ToFloat64(
		collector.activeFlows.WithLabelValues("healthcare_appointment")))

	collector.RecordFlowFinished("healthcare_appointment", "completed")
	assert.Equal(t, 0.0, testutil.ToFloat64(
		collector.activeFlows.WithLabelValues("healthcare_appointment")))
}

func TestCollector_RecordEscalationAndFallback(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordEscalation("issue_resolution", "max_attempts_exceeded")
	collector.RecordFallback("zh")
	collector.RecordExternalCall("generation", "error", 2*time.Second)

	assert.Greater(t, testutil.CollectAndCount(collector.escalationsTotal), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.fallbackReplies), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.externalCallsTotal), 0)
}
