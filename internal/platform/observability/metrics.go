package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 外部呼び出しの結果ラベル
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
)

// Collector は外部プロバイダ呼び出しと分析パイプラインの Prometheus メトリクスをまとめる。
// nil レシーバでも安全に呼び出せる。
type Collector struct {
	gatherer prometheus.Gatherer

	ProviderRequests  *prometheus.CounterVec
	ProviderDurations *prometheus.HistogramVec
	StageRuns         *prometheus.CounterVec
	ResultListSize    prometheus.Gauge
}

// NewCollector は Registerer にメトリクスを登録する。nil の場合はグローバルレジストリを使う。
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proplens_provider_requests_total",
		Help: "Total number of external provider calls, labeled by provider, operation, and outcome.",
	}, []string{"provider", "operation", "outcome"}), "proplens_provider_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proplens_provider_request_duration_seconds",
		Help:    "External provider call latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "operation"}), "proplens_provider_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	stages, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proplens_pipeline_stage_runs_total",
		Help: "Analysis pipeline stage executions, labeled by stage and outcome.",
	}, []string{"stage", "outcome"}), "proplens_pipeline_stage_runs_total")
	if err != nil {
		return nil, err
	}

	listSize, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "proplens_result_list_size",
		Help: "Number of place records held by the controller after the last search.",
	}), "proplens_result_list_size")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		ProviderRequests:  requests,
		ProviderDurations: durations,
		StageRuns:         stages,
		ResultListSize:    listSize,
	}, nil
}

// ObserveProvider はプロバイダ呼び出し1回分を記録する
func (c *Collector) ObserveProvider(provider, operation, outcome string, started time.Time) {
	if c == nil {
		return
	}
	if c.ProviderRequests != nil {
		c.ProviderRequests.WithLabelValues(provider, operation, outcome).Inc()
	}
	if c.ProviderDurations != nil {
		c.ProviderDurations.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
	}
}

// ObserveStage はパイプラインステージの実行結果を記録する
func (c *Collector) ObserveStage(stage, outcome string) {
	if c == nil || c.StageRuns == nil {
		return
	}
	c.StageRuns.WithLabelValues(stage, outcome).Inc()
}

// SetResultListSize は現在の結果リスト件数を記録する
func (c *Collector) SetResultListSize(n int) {
	if c == nil || c.ResultListSize == nil {
		return
	}
	c.ResultListSize.Set(float64(n))
}

// Handler は /metrics 用のハンドラを返す
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
