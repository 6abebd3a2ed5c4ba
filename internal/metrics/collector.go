// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector 指标收集器。
// 所有方法对 nil 接收者安全，便于在测试中不注入收集器。
type Collector struct {
	// 工作流指标
	runsTotal     *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	iterations    prometheus.Histogram

	// 网关指标
	generateTotal    *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
	costTotal        *prometheus.CounterVec
	fallbacksTotal   *prometheus.CounterVec
}

// NewCollector 创建指标收集器并注册到给定的 Registerer。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courseflow_runs_total",
			Help: "Total workflow runs by terminal status.",
		}, []string{"status"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courseflow_phase_duration_seconds",
			Help:    "Duration of each workflow phase.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"phase"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "courseflow_run_iterations",
			Help:    "Iteration loop count per completed run.",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		}),
		generateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courseflow_generate_requests_total",
			Help: "Generation backend requests by provider and status.",
		}, []string{"provider", "status"}),
		generateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courseflow_generate_duration_seconds",
			Help:    "Latency of generation backend calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"provider"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courseflow_generate_tokens_total",
			Help: "Tokens consumed by provider.",
		}, []string{"provider"}),
		costTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courseflow_generate_cost_usd_total",
			Help: "Estimated generation cost in USD by provider.",
		}, []string{"provider"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courseflow_generate_fallbacks_total",
			Help: "Fallback switches by primary provider.",
		}, []string{"provider"}),
	}

	if reg != nil {
		reg.MustRegister(
			c.runsTotal, c.phaseDuration, c.iterations,
			c.generateTotal, c.generateDuration,
			c.tokensTotal, c.costTotal, c.fallbacksTotal,
		)
	}
	return c
}

// RecordRun 记录一次运行的终态。
func (c *Collector) RecordRun(status string, iterations int) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.iterations.Observe(float64(iterations))
}

// RecordPhase 记录一个阶段的执行时长。
func (c *Collector) RecordPhase(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordGenerate 记录一次后端生成调用。
func (c *Collector) RecordGenerate(provider, status string, d time.Duration, tokens int, cost float64) {
	if c == nil {
		return
	}
	c.generateTotal.WithLabelValues(provider, status).Inc()
	c.generateDuration.WithLabelValues(provider).Observe(d.Seconds())
	if tokens > 0 {
		c.tokensTotal.WithLabelValues(provider).Add(float64(tokens))
	}
	if cost > 0 {
		c.costTotal.WithLabelValues(provider).Add(cost)
	}
}

// RecordFallback 记录一次主后端到备用后端的切换。
func (c *Collector) RecordFallback(primary string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(primary).Inc()
}
