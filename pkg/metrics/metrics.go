package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync outcome labels
const (
	SyncSuccess = "success"
	SyncError   = "error"
)

type Metrics struct {
	registry    *prometheus.Registry
	httpReqCnt  *prometheus.CounterVec
	httpDur     *prometheus.HistogramVec
	httpInfl    *prometheus.GaugeVec
	woExecCnt   *prometheus.CounterVec
	woExecDur   *prometheus.HistogramVec
	woExecInfl  prometheus.Gauge
	syncCnt     *prometheus.CounterVec
	syncDur     *prometheus.HistogramVec
	syncedItems *prometheus.GaugeVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	woExecCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "work_order_executions_total"}, []string{"status"})
	woExecDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "work_order_execution_duration_seconds", Buckets: cfg.Buckets}, []string{"status"})
	woExecInfl := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "work_order_executions_inflight"})
	r.MustRegister(woExecCnt, woExecDur, woExecInfl)

	syncCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "catalog_syncs_total"}, []string{"status"})
	syncDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "catalog_sync_duration_seconds", Buckets: cfg.Buckets}, []string{"status"})
	syncedItems := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "catalog_synced_products"}, []string{"company_id"})
	r.MustRegister(syncCnt, syncDur, syncedItems)

	return &Metrics{
		registry:    r,
		httpReqCnt:  httpReqCnt,
		httpDur:     httpDur,
		httpInfl:    httpInfl,
		woExecCnt:   woExecCnt,
		woExecDur:   woExecDur,
		woExecInfl:  woExecInfl,
		syncCnt:     syncCnt,
		syncDur:     syncDur,
		syncedItems: syncedItems,
	}
}

// Recording methods are no-ops on a nil *Metrics

func (m *Metrics) ExecutionStart() {
	if m == nil {
		return
	}
	m.woExecInfl.Inc()
}

func (m *Metrics) ExecutionDone(status string, since time.Time) {
	if m == nil {
		return
	}
	m.woExecCnt.WithLabelValues(status).Inc()
	m.woExecDur.WithLabelValues(status).Observe(time.Since(since).Seconds())
	m.woExecInfl.Dec()
}

func (m *Metrics) SyncDone(companyID, status string, products int, since time.Time) {
	if m == nil {
		return
	}
	m.syncCnt.WithLabelValues(status).Inc()
	m.syncDur.WithLabelValues(status).Observe(time.Since(since).Seconds())
	if status == SyncSuccess {
		m.syncedItems.WithLabelValues(companyID).Set(float64(products))
	}
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
