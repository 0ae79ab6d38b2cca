// Package metrics exposes Prometheus counters for the bot.
package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Report outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeFetchError  = "fetch_error"
	OutcomeRenderError = "render_error"
)

// Recorder is what the bot and the report service report into.
type Recorder interface {
	RecordSaved(kind string)
	RecordStoreFailure(op string)
	RecordReport(outcome string, renderTime time.Duration)
	RecordRateLimited()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	saved       *prometheus.CounterVec
	storeFail   *prometheus.CounterVec
	reports     *prometheus.CounterVec
	renderTime  prometheus.Histogram
	rateLimited prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		saved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pillbot_records_saved_total",
			Help: "Records persisted, by kind.",
		}, []string{"kind"}),
		storeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pillbot_store_failures_total",
			Help: "Record store failures, by operation.",
		}, []string{"op"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pillbot_reports_total",
			Help: "Report requests, by outcome.",
		}, []string{"outcome"}),
		renderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pillbot_report_render_seconds",
			Help:    "Time spent assembling and rendering a report.",
			Buckets: prometheus.DefBuckets,
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pillbot_reports_rate_limited_total",
			Help: "Report requests rejected by the per-user limiter.",
		}),
	}
	reg.MustRegister(c.saved, c.storeFail, c.reports, c.renderTime, c.rateLimited)
	return c
}

// RegisterDBStats adds connection pool gauges for db.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, name string) {
	reg.MustRegister(collectors.NewDBStatsCollector(db, name))
}

func (c *Collector) RecordSaved(kind string) {
	c.saved.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordStoreFailure(op string) {
	c.storeFail.WithLabelValues(op).Inc()
}

// RecordReport counts the outcome; renderTime is observed only for successful reports.
func (c *Collector) RecordReport(outcome string, renderTime time.Duration) {
	c.reports.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		c.renderTime.Observe(renderTime.Seconds())
	}
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSaved(string)                 {}
func (Nop) RecordStoreFailure(string)          {}
func (Nop) RecordReport(string, time.Duration) {}
func (Nop) RecordRateLimited()                 {}
