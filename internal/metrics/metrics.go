// Package metrics exposes Prometheus metrics for the API and the reminder
// scheduler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records request and reminder metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	remindersSent prometheus.Counter
	remindersFail prometheus.Counter
	remindersSkip prometheus.Counter
	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktracker_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_reminders_sent_total",
			Help: "Due-date reminders dispatched.",
		}),
		remindersFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_reminders_failed_total",
			Help: "Due-date reminders that could not be dispatched.",
		}),
		remindersSkip: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_reminders_skipped_total",
			Help: "Candidates skipped because they were already reminded.",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_reminder_scans_total",
			Help: "Reminder scans by outcome.",
		}, []string{"result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tasktracker_reminder_scan_duration_seconds",
			Help:    "Duration of completed reminder scans in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.remindersSent,
		c.remindersFail,
		c.remindersSkip,
		c.scans,
		c.scanDuration,
	)
	return c
}

// ScanCompleted records the outcome of a finished reminder scan.
func (c *Collector) ScanCompleted(sent, skipped, failed int, d time.Duration) {
	if c == nil {
		return
	}
	c.scans.WithLabelValues("ok").Inc()
	c.remindersSent.Add(float64(sent))
	c.remindersSkip.Add(float64(skipped))
	c.remindersFail.Add(float64(failed))
	c.scanDuration.Observe(d.Seconds())
}

// ScanFailed records a scan aborted before any reminder was attempted.
func (c *Collector) ScanFailed() {
	if c == nil {
		return
	}
	c.scans.WithLabelValues("error").Inc()
}

// Middleware records every request under its route template, so /tasks/:id
// stays a single series.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
