package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// 指令指标
	CommandsTotal *prometheus.CounterVec

	// 服务商调用指标
	ProviderRequestsTotal *prometheus.CounterVec

	// 会话指标
	SessionsCreated  prometheus.Counter
	SessionsRestored prometheus.Counter
	SessionsActive   prometheus.Gauge

	// 收件箱指标
	MessagesDelivered prometheus.Counter
	MessagesDeleted   prometheus.Counter
	OTPDetected       prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_bot_commands_total",
				Help: "Total number of bot commands handled",
			},
			[]string{"command", "outcome"},
		),

		ProviderRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_bot_provider_requests_total",
				Help: "Total number of mailbox provider API calls",
			},
			[]string{"operation", "outcome"},
		),

		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tempmail_bot_sessions_created_total",
				Help: "Total number of mailbox sessions created",
			},
		),

		SessionsRestored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tempmail_bot_sessions_restored_total",
				Help: "Total number of mailbox sessions restored from a recovery token",
			},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tempmail_bot_sessions_active",
				Help: "Number of sessions currently held in memory",
			},
		),

		MessagesDelivered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tempmail_bot_messages_delivered_total",
				Help: "Total number of messages delivered to users",
			},
		),

		MessagesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tempmail_bot_messages_deleted_total",
				Help: "Total number of messages deleted on the provider after delivery",
			},
		),

		OTPDetected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tempmail_bot_otp_detected_total",
				Help: "Total number of messages with a detected OTP",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_bot_errors_total",
				Help: "Total number of errors by component",
			},
			[]string{"component"},
		),
	}
}

// HTTPHandler 返回 Prometheus 指标处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
