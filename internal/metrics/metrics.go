// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーとメタデータ抽出の各系統から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordEnrichLatency(duration time.Duration)
	RecordEnrichFallback(branch string)
	RecordLLMCall(success bool)
	RecordBookmarkCreated()
	RecordLoginFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	enrichLatency   prometheus.Histogram
	enrichFallback  *prometheus.CounterVec
	llmCalls        *prometheus.CounterVec
	bookmarkCreated prometheus.Counter
	loginFailure    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bukuma_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		enrichLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bukuma_enrich_latency_seconds",
			Help:    "メタデータ抽出（4系統マージ）のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		enrichFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bukuma_enrich_fallback_total",
			Help: "フォールバック値に縮退した抽出系統の合計数",
		}, []string{"branch"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bukuma_llm_calls_total",
			Help: "LLM呼び出しの合計数（成功/失敗別）",
		}, []string{"result"}),
		bookmarkCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_bookmarks_created_total",
			Help: "保存されたブックマークの合計数",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_login_failure_total",
			Help: "ログイン失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.enrichLatency,
		c.enrichFallback,
		c.llmCalls,
		c.bookmarkCreated,
		c.loginFailure,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordEnrichLatency はメタデータ抽出全体のレイテンシを記録する。
func (c *Collector) RecordEnrichLatency(duration time.Duration) {
	c.enrichLatency.Observe(duration.Seconds())
}

// RecordEnrichFallback はフォールバックに縮退した系統を記録する。
// branchは title / favicon / keywords / summary のいずれか。
func (c *Collector) RecordEnrichFallback(branch string) {
	c.enrichFallback.WithLabelValues(branch).Inc()
}

// RecordLLMCall はLLM呼び出しの結果を記録する。
func (c *Collector) RecordLLMCall(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.llmCalls.WithLabelValues(result).Inc()
}

// RecordBookmarkCreated はブックマーク保存成功を記録する。
func (c *Collector) RecordBookmarkCreated() {
	c.bookmarkCreated.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
