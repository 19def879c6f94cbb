package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brilliantaksan/brilliantaksan-web/internal/version"
)

// Webhook event types tracked by name; anything else is counted as "other".
var knownWebhookEvents = map[string]bool{
	"video.asset.ready":          true,
	"video.asset.errored":        true,
	"video.upload.asset_created": true,
	"video.upload.cancelled":     true,
}

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	panicTotal  prometheus.Counter
	buildInfo   *prometheus.GaugeVec

	ratelimitDenied   *prometheus.CounterVec
	ratelimitCapacity *prometheus.CounterVec

	contentSource      *prometheus.GaugeVec
	contentRenders     *prometheus.CounterVec
	contentLoadedTs    prometheus.Gauge
	storeOps           *prometheus.CounterVec
	storeDur           *prometheus.HistogramVec
	loginTotal         *prometheus.CounterVec
	webhookEventsTotal *prometheus.CounterVec

	profilingActive prometheus.Gauge
}

// New returns a private registry with the go/process collectors and every
// server metric. Labels are bounded: chi route patterns, never raw paths of
// matched routes, and fixed outcome vocabularies.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 9),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
		ratelimitCapacity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "New addresses placed in the shared overflow bucket",
		}, []string{"limiter"}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Source of the last rendered page: live, last-good or bundled (value is always 1)",
		}, []string{"source"}),
		contentRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_renders_total",
			Help: "Page renders by content source",
		}, []string{"source"}),
		contentLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_loaded_timestamp_seconds",
			Help: "Unix time of the last successful content read or save",
		}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_store_operations_total",
			Help: "Content store reads and writes by medium and outcome (ok, conflict, no_writable_medium, error)",
		}, []string{"op", "medium", "outcome"}),
		storeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "content_store_operation_duration_seconds",
			Help:    "Content store operation latency by medium",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op", "medium"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_login_total",
			Help: "Admin session logins by outcome",
		}, []string{"outcome"}),
		webhookEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_webhook_events_total",
			Help: "Accepted video pipeline webhook deliveries by event type",
		}, []string{"type"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.panicTotal,
		m.buildInfo,
		m.ratelimitDenied,
		m.ratelimitCapacity,
		m.contentSource,
		m.contentRenders,
		m.contentLoadedTs,
		m.storeOps,
		m.storeDur,
		m.loginTotal,
		m.webhookEventsTotal,
		m.profilingActive,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests and for registering extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) IncHttpPanic() { m.panicTotal.Inc() }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

// IncRateLimitDenied counts a 429 from the named limiter ("site" or "login").
func (m *ServerMetrics) IncRateLimitDenied(limiter string) {
	m.ratelimitDenied.WithLabelValues(limiter).Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity(limiter string) {
	m.ratelimitCapacity.WithLabelValues(limiter).Inc()
}

// ObserveContentSource records one page render and moves the source gauge.
func (m *ServerMetrics) ObserveContentSource(source string) {
	m.contentRenders.WithLabelValues(source).Inc()
	m.contentSource.Reset()
	m.contentSource.WithLabelValues(source).Set(1)
}

func (m *ServerMetrics) SetContentLoadedTimestamp(t time.Time) {
	m.contentLoadedTs.Set(float64(t.Unix()))
}

// ObserveStore matches contentstore.ObserveFunc. Successful operations also
// move the content loaded timestamp.
func (m *ServerMetrics) ObserveStore(op, medium, outcome string, d time.Duration) {
	m.storeOps.WithLabelValues(op, medium, outcome).Inc()
	m.storeDur.WithLabelValues(op, medium).Observe(d.Seconds())
	if outcome == "ok" {
		m.SetContentLoadedTimestamp(time.Now())
	}
}

func (m *ServerMetrics) IncLogin(outcome string) {
	m.loginTotal.WithLabelValues(outcome).Inc()
}

func (m *ServerMetrics) IncWebhookEvent(eventType string) {
	if !knownWebhookEvents[eventType] {
		eventType = "other"
	}
	m.webhookEventsTotal.WithLabelValues(eventType).Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
		return
	}
	m.profilingActive.Set(0)
}
