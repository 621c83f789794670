package application

import (
	"github.com/prometheus/client_golang/prometheus"

	"orderflow/internal/service/approval/domain"
)

// WorkflowMetrics 汇总审批工作流的核心业务指标。
type WorkflowMetrics struct {
	Decisions            *prometheus.CounterVec
	GateDenials          *prometheus.CounterVec
	NotificationFailures prometheus.Counter
}

// NewWorkflowMetrics 创建并注册指标。测试传入独立的 prometheus.NewRegistry 以避免重复注册。
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Subsystem: "approval",
			Name:      "decisions_total",
			Help:      "Total number of persisted admin decisions.",
		}, []string{"decision"}),
		GateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Subsystem: "approval",
			Name:      "gate_denials_total",
			Help:      "Total number of payment attempts denied by the payment gate.",
		}, []string{"reason"}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderflow",
			Subsystem: "approval",
			Name:      "notification_failures_total",
			Help:      "Total number of best-effort notifications that failed to send.",
		}),
	}
	reg.MustRegister(m.Decisions, m.GateDenials, m.NotificationFailures)
	return m
}

// nil receiver 安全：未接指标后端时各观测方法直接空转

func (m *WorkflowMetrics) ObserveDecision(d Decision) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(d)).Inc()
}

func (m *WorkflowMetrics) ObserveGateDenial(reason domain.GateReason) {
	if m == nil {
		return
	}
	m.GateDenials.WithLabelValues(string(reason)).Inc()
}

func (m *WorkflowMetrics) ObserveNotificationFailure() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}
