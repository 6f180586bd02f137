// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RemoteRecorder はリモートサービス呼び出しのメトリクス記録インターフェース。
// remote.Clientから利用する。
type RemoteRecorder interface {
	RecordRemoteRequest(endpoint string, statusCode int)
	RecordRemoteFailure(endpoint string, category string)
	RecordRemoteLatency(endpoint string, duration time.Duration)
}

// HTTPRecorder はリファレンスサーバーのリクエストメトリクス記録インターフェース。
type HTTPRecorder interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	remoteRequests *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	httpStatus     *prometheus.CounterVec
	httpLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackorsnooze_remote_requests_total",
			Help: "リモートサービス呼び出しのステータスコード別件数",
		}, []string{"endpoint", "status_code"}),
		remoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackorsnooze_remote_failures_total",
			Help: "リモートサービス呼び出しのエラーカテゴリ別失敗件数",
		}, []string{"endpoint", "category"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hackorsnooze_remote_latency_seconds",
			Help:    "リモートサービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackorsnooze_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hackorsnooze_http_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.remoteRequests,
		c.remoteFailures,
		c.remoteLatency,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// RecordRemoteRequest はリモート呼び出しの応答ステータスを記録する。
func (c *Collector) RecordRemoteRequest(endpoint string, statusCode int) {
	c.remoteRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordRemoteFailure はリモート呼び出しの失敗をカテゴリ別に記録する。
func (c *Collector) RecordRemoteFailure(endpoint string, category string) {
	c.remoteFailures.WithLabelValues(endpoint, category).Inc()
}

// RecordRemoteLatency はリモート呼び出しのレイテンシを記録する。
func (c *Collector) RecordRemoteLatency(endpoint string, duration time.Duration) {
	c.remoteLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないRemoteRecorder/HTTPRecorder。
// メトリクスを使わない呼び出し元やテストで使用する。
type Nop struct{}

func (Nop) RecordRemoteRequest(string, int)           {}
func (Nop) RecordRemoteFailure(string, string)        {}
func (Nop) RecordRemoteLatency(string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)                      {}
func (Nop) RecordHTTPLatency(time.Duration)           {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
