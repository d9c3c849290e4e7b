package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gemini_image_api"

// Metrics は、HTTPリクエストとGemini API呼び出しの計測値を保持します
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New は、コレクターを作成して reg に登録します
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by path and status code.",
		}, []string{"path", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by path.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"path"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gemini_requests_total",
			Help:      "Total number of Gemini API calls by operation and result.",
		}, []string{"operation", "result"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gemini_request_duration_seconds",
			Help:      "Gemini API call latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.upstreamTotal, m.upstreamDuration)
	}
	return m
}

// ObserveRequest は、HTTPリクエスト1件の結果を記録します
func (m *Metrics) ObserveRequest(path, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(path, code).Inc()
	m.requestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveUpstream は、Gemini API呼び出し1件の結果を記録します
func (m *Metrics) ObserveUpstream(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.upstreamTotal.WithLabelValues(operation, result).Inc()
	m.upstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
