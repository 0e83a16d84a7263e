// Package metrics exposes Prometheus collectors for the extractor service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal          *prometheus.CounterVec
	fetchDurationSeconds  *prometheus.HistogramVec
	fetchRetriesTotal     prometheus.Counter
	cacheLookupsTotal     *prometheus.CounterVec
	stageDurationSeconds  *prometheus.HistogramVec
	recordsTotal          *prometheus.CounterVec
	imagesProcessedTotal  *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpDurationSeconds   *prometheus.HistogramVec
	inflightHostRequests  *prometheus.GaugeVec
	publishFailuresTotal  prometheus.Counter
	recordSinkErrorsTotal prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_fetches_total",
				Help: "Total transport fetches, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extractor_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by host.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "extractor_fetch_retries_total",
				Help: "Total retry attempts issued by the transport coordinator.",
			},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_cache_lookups_total",
				Help: "Response cache lookups, labeled hit or miss.",
			},
			[]string{"result"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extractor_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"stage"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_records_total",
				Help: "Total assembled records, labeled by completeness status.",
			},
			[]string{"status"},
		)

		imagesProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_images_processed_total",
				Help: "Candidate images processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_http_requests_total",
				Help: "API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extractor_http_request_duration_seconds",
				Help:    "Histogram of API request latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "route"},
		)

		inflightHostRequests = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extractor_inflight_host_requests",
				Help: "In-flight outbound requests per host.",
			},
			[]string{"host"},
		)

		publishFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "extractor_publish_failures_total",
				Help: "Completion events that failed to publish.",
			},
		)

		recordSinkErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "extractor_record_sink_errors_total",
				Help: "Record persistence failures (non-fatal).",
			},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one completed transport fetch.
func ObserveFetch(host, outcome string, duration time.Duration) {
	Init()
	fetchesTotal.WithLabelValues(host, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveRetry counts one retry attempt.
func ObserveRetry() {
	Init()
	fetchRetriesTotal.Inc()
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRecord counts one assembled record by status.
func ObserveRecord(status string) {
	Init()
	recordsTotal.WithLabelValues(status).Inc()
}

// ObserveImage counts one processed image candidate by outcome.
func ObserveImage(outcome string) {
	Init()
	imagesProcessedTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(method, route, code string, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, code).Inc()
	httpDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncInflight tracks one outbound request starting against host.
func IncInflight(host string) {
	Init()
	inflightHostRequests.WithLabelValues(host).Inc()
}

// DecInflight tracks one outbound request finishing against host.
func DecInflight(host string) {
	Init()
	inflightHostRequests.WithLabelValues(host).Dec()
}

// ObservePublishFailure counts one failed completion publish.
func ObservePublishFailure() {
	Init()
	publishFailuresTotal.Inc()
}

// ObserveRecordSinkError counts one failed record persistence attempt.
func ObserveRecordSinkError() {
	Init()
	recordSinkErrorsTotal.Inc()
}
