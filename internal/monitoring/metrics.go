package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blacklist/backend/internal/domain"
)

// Metrics 监控指标
type Metrics struct {
	registry  *prometheus.Registry
	startedAt time.Time

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 黑名单指标
	EntriesCreated prometheus.Counter
	EntriesDeleted prometheus.Counter
	EntriesTotal   prometheus.Gauge

	// 认证指标
	TokensIssued prometheus.Counter
	AuthFailures *prometheus.CounterVec

	// 推送与网关指标
	WebSocketClients prometheus.Gauge
	SMTPRejections   prometheus.Counter

	// 系统指标
	SystemUptime prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标，每个实例使用独立的注册表
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startedAt: time.Now(),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blacklist_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blacklist_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blacklist_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blacklist_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		EntriesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blacklist_entries_created_total",
				Help: "Total number of blacklist entries created",
			},
		),

		EntriesDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blacklist_entries_deleted_total",
				Help: "Total number of blacklist entries deleted",
			},
		),

		EntriesTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blacklist_entries",
				Help: "Number of blacklist entries currently stored",
			},
		),

		TokensIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blacklist_tokens_issued_total",
				Help: "Total number of access tokens issued",
			},
		),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blacklist_auth_failures_total",
				Help: "Total number of rejected authentication attempts",
			},
			[]string{"reason"},
		),

		WebSocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blacklist_websocket_clients",
				Help: "Number of connected change feed clients",
			},
		),

		SMTPRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blacklist_smtp_rejections_total",
				Help: "Total number of SMTP senders rejected by the blacklist",
			},
		),

		SystemUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blacklist_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blacklist_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blacklist_panics_total",
				Help: "Total number of panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blacklist_rate_limit_blocks_total",
				Help: "Total number of rate limit blocks",
			},
			[]string{"scope"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// Publish 根据黑名单事件更新计数，实现 service.EventPublisher
func (m *Metrics) Publish(event domain.BlacklistEvent) {
	switch event.Type {
	case domain.EventEntryCreated:
		m.EntriesCreated.Inc()
		m.EntriesTotal.Inc()
	case domain.EventEntryDeleted:
		m.EntriesDeleted.Inc()
		m.EntriesTotal.Dec()
	}
}

// SetEntriesTotal 启动时按存储中的实际数量初始化
func (m *Metrics) SetEntriesTotal(count int64) {
	m.EntriesTotal.Set(float64(count))
}

// RecordTokenIssued 记录令牌签发
func (m *Metrics) RecordTokenIssued() {
	m.TokensIssued.Inc()
}

// RecordAuthFailure 记录认证失败，reason 如 missing、invalid、expired、credentials
func (m *Metrics) RecordAuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// RecordSMTPRejection 记录 SMTP 拒信
func (m *Metrics) RecordSMTPRejection() {
	m.SMTPRejections.Inc()
}

// SetWebSocketClients 更新 WebSocket 连接数
func (m *Metrics) SetWebSocketClients(count int) {
	m.WebSocketClients.Set(float64(count))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(scope string) {
	m.RateLimitBlocks.WithLabelValues(scope).Inc()
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.SystemUptime.Set(time.Since(m.startedAt).Seconds())
		handler.ServeHTTP(w, r)
	})
}
