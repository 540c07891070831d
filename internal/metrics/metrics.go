// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordDispatchRun(batchSize int)
	RecordDispatchSkipped()
	RecordLetterDelivered()
	RecordLetterFailed(reason string)
	RecordLetterCreated()
	RecordSendLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	dispatchRuns    prometheus.Counter
	dispatchSkipped prometheus.Counter
	dispatchBatch   prometheus.Histogram
	delivered       prometheus.Counter
	failed          *prometheus.CounterVec
	created         prometheus.Counter
	sendLatency     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		dispatchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "penpal_dispatch_runs_total",
			Help: "配達スイープ実行の合計数",
		}),
		dispatchSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "penpal_dispatch_skipped_total",
			Help: "前回実行中のためスキップされたスイープの合計数",
		}),
		dispatchBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "penpal_dispatch_batch_size",
			Help:    "1回のスイープで処理対象となった手紙数",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "penpal_letters_delivered_total",
			Help: "配達に成功した手紙の合計数",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "penpal_letters_failed_total",
			Help: "配達に失敗した手紙の理由別合計数",
		}, []string{"reason"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "penpal_letters_created_total",
			Help: "作成された手紙の合計数",
		}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "penpal_send_latency_seconds",
			Help:    "メッセージ送信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.dispatchRuns,
		c.dispatchSkipped,
		c.dispatchBatch,
		c.delivered,
		c.failed,
		c.created,
		c.sendLatency,
	)

	return c
}

// RecordDispatchRun はスイープ実行と処理対象件数を記録する。
func (c *Collector) RecordDispatchRun(batchSize int) {
	c.dispatchRuns.Inc()
	c.dispatchBatch.Observe(float64(batchSize))
}

// RecordDispatchSkipped は再入によるスイープスキップを記録する。
func (c *Collector) RecordDispatchSkipped() {
	c.dispatchSkipped.Inc()
}

// RecordLetterDelivered は配達成功を記録する。
func (c *Collector) RecordLetterDelivered() {
	c.delivered.Inc()
}

// RecordLetterFailed は配達失敗を理由別に記録する。
func (c *Collector) RecordLetterFailed(reason string) {
	c.failed.WithLabelValues(reason).Inc()
}

// RecordLetterCreated は手紙の作成を記録する。
func (c *Collector) RecordLetterCreated() {
	c.created.Inc()
}

// RecordSendLatency は送信レイテンシを記録する。
func (c *Collector) RecordSendLatency(duration time.Duration) {
	c.sendLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
