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
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordCheckIn()
	RecordCheckOut(closedBy string)
	SetActiveSessions(count int)
	RecordSweep(closedCount int, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	checkIns       prometheus.Counter
	checkOuts      *prometheus.CounterVec
	activeSessions prometheus.Gauge
	sweepRuns      prometheus.Counter
	sweepClosed    prometheus.Counter
	sweepDuration  prometheus.Histogram
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubdesk_checkins_total",
			Help: "チェックイン成功の合計数",
		}),
		checkOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdesk_checkouts_total",
			Help: "終了主体別のチェックアウト合計数",
		}, []string{"closed_by"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clubdesk_active_sessions",
			Help: "現在の在室セッション数",
		}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubdesk_sweep_runs_total",
			Help: "スケジュールスイープ実行の合計数",
		}),
		sweepClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubdesk_sweep_closed_total",
			Help: "スイープで終了した在室セッションの合計数",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubdesk_sweep_duration_seconds",
			Help:    "スイープ実行時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubdesk_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.checkIns,
		c.checkOuts,
		c.activeSessions,
		c.sweepRuns,
		c.sweepClosed,
		c.sweepDuration,
		c.httpStatus,
	)

	return c
}

// RecordCheckIn はチェックイン成功を記録する。
func (c *Collector) RecordCheckIn() {
	c.checkIns.Inc()
}

// RecordCheckOut は終了主体別のチェックアウトを記録する。
func (c *Collector) RecordCheckOut(closedBy string) {
	c.checkOuts.WithLabelValues(closedBy).Inc()
}

// SetActiveSessions は現在の在室セッション数を記録する。
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// RecordSweep はスイープ1回分の実行結果を記録する。
func (c *Collector) RecordSweep(closedCount int, duration time.Duration) {
	c.sweepRuns.Inc()
	c.sweepClosed.Add(float64(closedCount))
	c.sweepDuration.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
