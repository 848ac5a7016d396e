// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカー、クライアントから利用する。
type MetricsCollector interface {
	RecordView(resource string)
	RecordReaction(resource, kind string)
	RecordFormSubmission(form string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordJobAffected(job string, count int64)
	RecordClientIncrementFailure(resource string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	views            *prometheus.CounterVec
	reactions        *prometheus.CounterVec
	formSubmissions  *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	jobAffected      *prometheus.CounterVec
	incrementFailure *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		views: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpsclub_views_total",
			Help: "閲覧数加算の合計数",
		}, []string{"resource"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpsclub_reactions_total",
			Help: "いいね・コメント数加算の合計数",
		}, []string{"resource", "kind"}),
		formSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpsclub_form_submissions_total",
			Help: "フォーム送信の合計数",
		}, []string{"form"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpsclub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bpsclub_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		jobAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpsclub_job_affected_rows_total",
			Help: "定期ジョブが更新・削除した行数",
		}, []string{"job"}),
		incrementFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpsclub_client_increment_failures_total",
			Help: "クライアントの閲覧数加算失敗の合計数",
		}, []string{"resource"}),
	}

	reg.MustRegister(
		c.views,
		c.reactions,
		c.formSubmissions,
		c.httpStatus,
		c.requestLatency,
		c.jobAffected,
		c.incrementFailure,
	)

	return c
}

// RecordView は閲覧数の加算を記録する。
func (c *Collector) RecordView(resource string) {
	c.views.WithLabelValues(resource).Inc()
}

// RecordReaction はいいね・コメント数の加算を記録する。
func (c *Collector) RecordReaction(resource, kind string) {
	c.reactions.WithLabelValues(resource, kind).Inc()
}

// RecordFormSubmission はフォーム送信を記録する。
func (c *Collector) RecordFormSubmission(form string) {
	c.formSubmissions.WithLabelValues(form).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordJobAffected は定期ジョブが処理した行数を記録する。
func (c *Collector) RecordJobAffected(job string, count int64) {
	c.jobAffected.WithLabelValues(job).Add(float64(count))
}

// RecordClientIncrementFailure はクライアント側の閲覧数加算失敗を記録する。
func (c *Collector) RecordClientIncrementFailure(resource string) {
	c.incrementFailure.WithLabelValues(resource).Inc()
}

// ClientIncrementFailures はリソース別の閲覧数加算失敗の累計を返す。
func (c *Collector) ClientIncrementFailures(resource string) float64 {
	var m dto.Metric
	if err := c.incrementFailure.WithLabelValues(resource).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
