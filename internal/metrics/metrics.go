// Package metrics exposes Prometheus collectors for the crawl service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecrawler_crawls_total",
			Help: "Total number of crawl requests, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)

	crawlDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitecrawler_stage_duration_seconds",
			Help:    "Histogram of crawl stage latencies, labeled by stage.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	pageLoadStepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecrawler_page_load_step_failures_total",
			Help: "Best-effort page load steps that failed and were skipped, labeled by step.",
		},
		[]string{"step"},
	)

	modelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitecrawler_model_calls_total",
			Help: "Total number of language model calls, labeled by enrichment step and outcome.",
		},
		[]string{"step", "outcome"},
	)

	modelCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitecrawler_model_call_duration_seconds",
			Help:    "Histogram of language model call latencies, labeled by enrichment step.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"step"},
	)

	screenshotBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitecrawler_screenshot_bytes_total",
			Help: "Total number of screenshot bytes uploaded.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
		},
		[]string{"method", "route"},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl counts a finished crawl and its total duration.
func ObserveCrawl(site, outcome string, duration time.Duration) {
	crawlsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
	crawlDurationSeconds.WithLabelValues("total").Observe(duration.Seconds())
}

// ObserveStage records how long one crawl stage took.
func ObserveStage(stage string, duration time.Duration) {
	crawlDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObservePageLoadStepFailure counts a swallowed page load step failure.
func ObservePageLoadStepFailure(step string) {
	pageLoadStepFailuresTotal.WithLabelValues(step).Inc()
}

// ObserveModelCall records one language model call.
func ObserveModelCall(step, outcome string, duration time.Duration) {
	modelCallsTotal.WithLabelValues(step, outcome).Inc()
	modelCallDurationSeconds.WithLabelValues(step).Observe(duration.Seconds())
}

// ObserveScreenshotBytes adds uploaded screenshot bytes.
func ObserveScreenshotBytes(n int) {
	if n > 0 {
		screenshotBytesTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
