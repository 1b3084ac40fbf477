package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 系统运行指标
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Webhook 分类流水线
	WebhookDeliveriesTotal  *prometheus.CounterVec // result: accepted / rejected
	MessagesClassifiedTotal *prometheus.CounterVec // label: 分类结果
	ClassificationErrors    prometheus.Counter
	LabelsAppliedTotal      *prometheus.CounterVec // outcome: created / duplicate

	// 上游调用
	ProviderRequestsTotal *prometheus.CounterVec // operation, status
	AIRequestsTotal       *prometheus.CounterVec // provider, status
	AIRequestDuration     *prometheus.HistogramVec
}

// NewMetrics 创建并注册全部指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onebox",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		WebhookDeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "webhook_deliveries_total",
				Help:      "Total number of webhook deliveries by verification result",
			},
			[]string{"result"},
		),
		MessagesClassifiedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "messages_classified_total",
				Help:      "Total number of messages classified by label",
			},
			[]string{"label"},
		),
		ClassificationErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "classification_errors_total",
				Help:      "Total number of failed classification attempts",
			},
		),
		LabelsAppliedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "labels_applied_total",
				Help:      "Total number of label applications by outcome",
			},
			[]string{"outcome"},
		),
		ProviderRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "provider_requests_total",
				Help:      "Total number of provider API requests",
			},
			[]string{"operation", "status"},
		),
		AIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onebox",
				Name:      "ai_requests_total",
				Help:      "Total number of AI provider requests",
			},
			[]string{"provider", "status"},
		),
		AIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onebox",
				Name:      "ai_request_duration_seconds",
				Help:      "AI provider request latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"provider"},
		),
	}
}
