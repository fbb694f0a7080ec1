// Package metrics はPrometheusのメトリクス定義とHTTP計測ミドルウェアを提供します。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookreader"

// Metrics holds every collector the service exports.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	uploads               *prometheus.CounterVec
	orphanCleanupFailures prometheus.Counter
	artifactDeleteFailure prometheus.Counter
	rateLimited           *prometheus.CounterVec
}

// New は指定レジストリにコレクターを登録します。
// 本番ではprometheus.DefaultRegisterer、テストではprometheus.NewRegistry()を渡します。
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "book_uploads_total",
			Help:      "Book uploads by format and outcome.",
		}, []string{"format", "outcome"}),
		orphanCleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_cleanup_failures_total",
			Help:      "Promoted artifacts that could not be removed after a failed metadata insert.",
		}),
		artifactDeleteFailure: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_delete_failures_total",
			Help:      "Book deletions whose artifact could not be removed.",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
}

// Middleware はリクエスト数とレイテンシを記録するginミドルウェアです。
// ルートが未定義の場合はラベル爆発を避けるため"unmatched"として集計します。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler は/metricsエンドポイントのハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// UploadSucceeded records a stored book.
func (m *Metrics) UploadSucceeded(format string) {
	m.uploads.WithLabelValues(format, "stored").Inc()
}

// UploadFailed records an upload that did not reach the stored state.
func (m *Metrics) UploadFailed(format string) {
	m.uploads.WithLabelValues(format, "failed").Inc()
}

func (m *Metrics) OrphanCleanupFailed() {
	m.orphanCleanupFailures.Inc()
}

func (m *Metrics) ArtifactDeleteFailed() {
	m.artifactDeleteFailure.Inc()
}

func (m *Metrics) RateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}
