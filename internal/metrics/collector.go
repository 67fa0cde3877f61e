package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 对话指标收集器
type Collector struct {
	// 轮次指标
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	// NLU 指标
	intentsTotal *prometheus.CounterVec

	// 流程指标
	escalationsTotal *prometheus.CounterVec
	flowsCompleted   *prometheus.CounterVec
	activeFlows      *prometheus.GaugeVec

	// 回复指标
	fallbackReplies *prometheus.CounterVec

	// 外部调用指标
	externalCallsTotal   *prometheus.CounterVec
	externalCallDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 轮次指标
	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of processed dialogue turns",
		},
		[]string{"intent", "status"},
	)

	c.turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Turn processing duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"intent"},
	)

	// NLU 指标
	c.intentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Total number of detected intents",
		},
		[]string{"intent"},
	)

	// 流程指标
	c.escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of flow escalations",
		},
		[]string{"flow", "reason"},
	)

	c.flowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_completed_total",
			Help:      "Total number of finished flow executions",
		},
		[]string{"flow", "status"},
	)

	c.activeFlows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flows_active",
			Help:      "Number of currently active flow executions",
		},
		[]string{"flow"},
	)

	// 回复指标
	c.fallbackReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_replies_total",
			Help:      "Total number of template/apology fallback replies",
		},
		[]string{"language"},
	)

	// 外部调用指标
	c.externalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Total number of external model calls",
		},
		[]string{"task", "status"},
	)

	c.externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "External model call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"task"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 💬 轮次指标记录
// =============================================================================

// RecordTurn 记录一轮对话处理
func (c *Collector) RecordTurn(intent, status string, duration time.Duration) {
	c.turnsTotal.WithLabelValues(intent, status).Inc()
	c.turnDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

// RecordIntent 记录一次意图识别结果
func (c *Collector) RecordIntent(intent string) {
	c.intentsTotal.WithLabelValues(intent).Inc()
}

// =============================================================================
// 🔀 流程指标记录
// =============================================================================

// RecordEscalation 记录一次升级
func (c *Collector) RecordEscalation(flow, reason string) {
	c.escalationsTotal.WithLabelValues(flow, reason).Inc()
}

// RecordFlowFinished 记录一次流程结束
func (c *Collector) RecordFlowFinished(flow, status string) {
	c.flowsCompleted.WithLabelValues(flow, status).Inc()
	c.activeFlows.WithLabelValues(flow).Dec()
}

// RecordFlowStarted 记录一次流程启动
func (c *Collector) RecordFlowStarted(flow string) {
	c.activeFlows.WithLabelValues(flow).Inc()
}

// =============================================================================
// 🗣️ 回复与外部调用指标记录
// =============================================================================

// RecordFallback 记录一次兜底回复
func (c *Collector) RecordFallback(language string) {
	c.fallbackReplies.WithLabelValues(language).Inc()
}

// RecordExternalCall 记录一次外部模型调用
func (c *Collector) RecordExternalCall(task, status string, duration time.Duration) {
	c.externalCallsTotal.WithLabelValues(task, status).Inc()
	c.externalCallDuration.WithLabelValues(task).Observe(duration.Seconds())
}
