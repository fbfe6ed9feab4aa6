package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/riotquota/internal/version"
	"github.com/keithlinneman/riotquota/pkg/ratelimit"
)

// ClientMetrics instruments the rate-limited API client: request outcomes on
// one side, quota-window behavior on the other.
type ClientMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	reqTotal *prometheus.CounterVec
	reqDur   *prometheus.HistogramVec

	throttledTotal *prometheus.CounterVec
	resetsTotal    *prometheus.CounterVec
	quotaCalls     *prometheus.GaugeVec

	buildInfo *prometheus.GaugeVec
}

// New returns a fresh registry + standard collectors + client metrics.
// Labels are bounded: endpoint names and window labels come from config, not
// request data, so there is no cardinality risk.
func New() *ClientMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ClientMetrics{
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riot_api_requests_total",
			Help: "Total Riot API requests by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riot_api_request_duration_seconds",
			Help:    "Riot API request latency by endpoint",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		throttledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quota_throttled_total",
			Help: "Total admissions that blocked on an exhausted quota window",
		}, []string{"window"}),
		resetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quota_resets_total",
			Help: "Total quota window resets, scheduled or server-driven",
		}, []string{"window"}),
		quotaCalls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quota_calls",
			Help: "Calls recorded by a quota window since process start",
		}, []string{"window", "result"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "version", "commit", "build_date", "go_version"}),
	}
	reg.MustRegister(
		m.reqTotal,
		m.reqDur,
		m.throttledTotal,
		m.resetsTotal,
		m.quotaCalls,
		m.buildInfo,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ClientMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ClientMetrics) SetBuildInfoFromVersion(vi version.Info) {
	m.buildInfo.With(prometheus.Labels{
		"app":        version.AppName,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
	}).Set(1)
}

func (m *ClientMetrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	m.reqTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.reqDur.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *ClientMetrics) IncThrottled(window string) {
	m.throttledTotal.WithLabelValues(window).Inc()
}

func (m *ClientMetrics) IncReset(window string) {
	m.resetsTotal.WithLabelValues(window).Inc()
}

// SetQuotaStats publishes a window's counters. Called on scrape-adjacent
// paths (periodic refresh or end of run), not per call.
func (m *ClientMetrics) SetQuotaStats(window string, s ratelimit.Stats) {
	m.quotaCalls.WithLabelValues(window, "successful").Set(float64(s.Successful))
	m.quotaCalls.WithLabelValues(window, "total").Set(float64(s.Total))
}
