package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the translation service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
	Utterances    *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec

	// Session metrics
	ActiveSessions   prometheus.Gauge
	PlaybackOutcomes *prometheus.CounterVec

	// Archive metrics
	ArchiveJobs *prometheus.CounterVec
}

// New creates the metrics on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translation_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translation_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translation_stage_duration_seconds",
			Help:    "Duration of transcribe, translate, synthesize and persist calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translation_stage_failures_total",
			Help: "Total number of failed pipeline stage calls",
		}, []string{"stage"}),
		Utterances: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translation_utterances_total",
			Help: "Utterances by outcome",
		}, []string{"outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translation_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "translation_active_sessions",
			Help: "Current number of connected participant sessions",
		}),
		PlaybackOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translation_playback_outcomes_total",
			Help: "Playback attempts by outcome",
		}, []string{"outcome"}),

		ArchiveJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translation_archive_jobs_total",
			Help: "Archive jobs by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) ObserveStage(stage string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) CacheResult(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) Utterance(outcome string) {
	if m == nil {
		return
	}
	m.Utterances.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Playback(outcome string) {
	if m == nil {
		return
	}
	m.PlaybackOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

func (m *Metrics) Archive(result string) {
	if m != nil {
		m.ArchiveJobs.WithLabelValues(result).Inc()
	}
}
