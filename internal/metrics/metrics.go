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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordSearch(mode string)
	RecordSearchFailure(mode string)
	RecordSearchLatency(mode string, duration time.Duration)
	RecordEmbedding()
	RecordEmbeddingFailure()
	RecordBackfillItems(count int)
	RecordMailSent()
	RecordMailDropped()
	RecordMailFailure()
	RecordMailQueueDepth(depth int)
	RecordUploadPresigned()
	RecordCleanupPurged(count int)
	RecordHTTPRequest(method string, status int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	searchTotal     *prometheus.CounterVec
	searchFail      *prometheus.CounterVec
	searchLatency   *prometheus.HistogramVec
	embedTotal      prometheus.Counter
	embedFail       prometheus.Counter
	backfillItems   prometheus.Counter
	mailSent        prometheus.Counter
	mailDropped     prometheus.Counter
	mailFail        prometheus.Counter
	mailQueueDepth  prometheus.Gauge
	uploadPresigned prometheus.Counter
	cleanupPurged   prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bearfolio_search_total",
			Help: "検索実行の合計数（モード別）",
		}, []string{"mode"}),
		searchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bearfolio_search_fail_total",
			Help: "検索失敗の合計数（モード別）",
		}, []string{"mode"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bearfolio_search_latency_seconds",
			Help:    "検索のレイテンシ（秒、モード別）",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		embedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_embedding_total",
			Help: "ベクトル化呼び出しの合計数",
		}),
		embedFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_embedding_fail_total",
			Help: "ベクトル化失敗の合計数",
		}),
		backfillItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_backfill_items_total",
			Help: "バックフィルで再ベクトル化されたアイテムの合計数",
		}),
		mailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_mail_sent_total",
			Help: "送信されたメールの合計数",
		}),
		mailDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_mail_dropped_total",
			Help: "キュー満杯で破棄されたメールの合計数",
		}),
		mailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_mail_fail_total",
			Help: "送信に失敗したメールの合計数",
		}),
		mailQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bearfolio_mail_queue_depth",
			Help: "メールキューの現在の滞留数",
		}),
		uploadPresigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_upload_presigned_total",
			Help: "発行された署名付きアップロードURLの合計数",
		}),
		cleanupPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bearfolio_cleanup_purged_total",
			Help: "クリーンアップで物理削除された行の合計数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bearfolio_http_requests_total",
			Help: "HTTPリクエストの合計数（メソッド・ステータス別）",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		c.searchTotal,
		c.searchFail,
		c.searchLatency,
		c.embedTotal,
		c.embedFail,
		c.backfillItems,
		c.mailSent,
		c.mailDropped,
		c.mailFail,
		c.mailQueueDepth,
		c.uploadPresigned,
		c.cleanupPurged,
		c.httpRequests,
	)

	return c
}

// RecordSearch は検索実行を記録する。modeは"fulltext"または"semantic"。
func (c *Collector) RecordSearch(mode string) {
	c.searchTotal.WithLabelValues(mode).Inc()
}

// RecordSearchFailure は検索失敗を記録する。
func (c *Collector) RecordSearchFailure(mode string) {
	c.searchFail.WithLabelValues(mode).Inc()
}

// RecordSearchLatency は検索のレイテンシを記録する。
func (c *Collector) RecordSearchLatency(mode string, duration time.Duration) {
	c.searchLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordEmbedding はベクトル化呼び出しを記録する。
func (c *Collector) RecordEmbedding() {
	c.embedTotal.Inc()
}

// RecordEmbeddingFailure はベクトル化失敗を記録する。
func (c *Collector) RecordEmbeddingFailure() {
	c.embedFail.Inc()
}

// RecordBackfillItems は再ベクトル化されたアイテム数を記録する。
func (c *Collector) RecordBackfillItems(count int) {
	c.backfillItems.Add(float64(count))
}

// RecordMailSent はメール送信成功を記録する。
func (c *Collector) RecordMailSent() {
	c.mailSent.Inc()
}

// RecordMailDropped はキュー満杯によるメール破棄を記録する。
func (c *Collector) RecordMailDropped() {
	c.mailDropped.Inc()
}

// RecordMailFailure はメール送信失敗を記録する。
func (c *Collector) RecordMailFailure() {
	c.mailFail.Inc()
}

// RecordMailQueueDepth はメールキューの現在の滞留数を記録する。
func (c *Collector) RecordMailQueueDepth(depth int) {
	c.mailQueueDepth.Set(float64(depth))
}

// RecordUploadPresigned は署名付きURL発行を記録する。
func (c *Collector) RecordUploadPresigned() {
	c.uploadPresigned.Inc()
}

// RecordCleanupPurged は物理削除された行数を記録する。
func (c *Collector) RecordCleanupPurged(count int) {
	c.cleanupPurged.Add(float64(count))
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method string, status int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
