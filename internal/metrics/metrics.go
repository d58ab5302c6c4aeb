// Package metrics exposes the trade job's Prometheus series:
//
//	tradejob_runs_total{result}          invocations by outcome (hold, order_submitted, position_closed, exit_pending, halted, failed)
//	tradejob_orders_total{side}          orders placed (buy) and exits submitted (sell)
//	tradejob_retries_total{op}           re-attempted broker calls
//	tradejob_terminations_total{reason}  cancelTradeJob signals by reason
//	tradejob_pnl_total                   realized plus unrealized P&L at the last check
//	tradejob_run_count                   run count after the last invocation
//
// A one-shot invocation pushes to a Pushgateway; the loop command serves /metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics methods are safe to call on a nil receiver.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	orders       *prometheus.CounterVec
	retries      *prometheus.CounterVec
	terminations *prometheus.CounterVec
	pnl          prometheus.Gauge
	runCount     prometheus.Gauge
}

func New(symbol string) *Metrics {
	labels := prometheus.Labels{"symbol": symbol}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradejob_runs_total",
			Help:        "Trade job invocations by outcome",
			ConstLabels: labels,
		}, []string{"result"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradejob_orders_total",
			Help:        "Orders submitted",
			ConstLabels: labels,
		}, []string{"side"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradejob_retries_total",
			Help:        "Broker calls re-attempted after a failure",
			ConstLabels: labels,
		}, []string{"op"}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradejob_terminations_total",
			Help:        "Job cancellations by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		pnl: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tradejob_pnl_total",
			Help:        "Realized plus unrealized P&L since job start",
			ConstLabels: labels,
		}),
		runCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tradejob_run_count",
			Help:        "Run count after the last invocation",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(m.runs, m.orders, m.retries, m.terminations, m.pnl, m.runCount)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RunCompleted(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

func (m *Metrics) OrderSubmitted(side string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side).Inc()
}

// Retry satisfies broker.RetryObserver.
func (m *Metrics) Retry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) Terminated(reason string) {
	if m == nil {
		return
	}
	m.terminations.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetPnL(v float64) {
	if m == nil {
		return
	}
	m.pnl.Set(v)
}

func (m *Metrics) SetRunCount(n int) {
	if m == nil {
		return
	}
	m.runCount.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Prometheus Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}
