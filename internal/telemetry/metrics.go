// Package telemetry exposes Prometheus collectors for the capture
// service.
package telemetry

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	capturesTotal              *prometheus.CounterVec
	captureDurationSeconds     *prometheus.HistogramVec
	screenshotBytesTotal       *prometheus.CounterVec
	activeRenders              prometheus.Gauge
	browserRelaunchesTotal     prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than
// once.
func Init() {
	once.Do(func() {
		capturesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagecapture_captures_total",
				Help: "Total capture operations, labeled by operation, site and status.",
			},
			[]string{"operation", "site", "status"},
		)

		captureDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagecapture_capture_duration_seconds",
				Help:    "Histogram of end-to-end capture latencies, labeled by operation.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		)

		screenshotBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagecapture_screenshot_bytes_total",
				Help: "Total screenshot bytes produced, labeled by format.",
			},
			[]string{"format"},
		)

		activeRenders = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagecapture_active_renders",
				Help: "Number of requests currently holding a browser session.",
			},
		)

		browserRelaunchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pagecapture_browser_relaunches_total",
				Help: "Total times the shared browser was relaunched after dying.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagecapture_http_requests_total",
				Help: "Total HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagecapture_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 120, 300},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL for use as a
// label value, returning "unknown" for anything unparseable.
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

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCapture records one finished capture operation.
func ObserveCapture(operation, site, status string, duration time.Duration) {
	capturesTotal.WithLabelValues(operation, SanitizeSite(site), status).Inc()
	captureDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveScreenshotBytes adds produced screenshot bytes by format.
func ObserveScreenshotBytes(format string, n int) {
	if n > 0 {
		screenshotBytesTotal.WithLabelValues(format).Add(float64(n))
	}
}

// IncActiveRenders increments the active renders gauge.
func IncActiveRenders() {
	activeRenders.Inc()
}

// DecActiveRenders decrements the active renders gauge.
func DecActiveRenders() {
	activeRenders.Dec()
}

// ObserveBrowserRelaunch counts one browser relaunch.
func ObserveBrowserRelaunch() {
	browserRelaunchesTotal.Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
