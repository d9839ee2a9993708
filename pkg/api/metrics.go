package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssargent/howfar/pkg/archive"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API. A nil *Metrics records
// nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Import metrics
	importsTotal        *prometheus.CounterVec
	recordsImported     *prometheus.CounterVec
	decodeFailuresTotal *prometheus.CounterVec

	// Archive gauges
	archiveCaptures  prometheus.Gauge
	archiveRecords   prometheus.Gauge
	archiveDiskBytes prometheus.Gauge

	// Authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
// A nil reg uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howfar_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "howfar_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "howfar_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howfar_imports_total",
				Help: "Total number of capture uploads",
			},
			[]string{"status"},
		),

		recordsImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howfar_records_imported_total",
				Help: "Measurements read from uploaded captures",
			},
			[]string{"kind"},
		),

		decodeFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howfar_decode_failures_total",
				Help: "Uploads rejected while decoding, by stage",
			},
			[]string{"class"},
		),

		archiveCaptures: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "howfar_archive_captures",
				Help: "Captures stored in the archive",
			},
		),

		archiveRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "howfar_archive_records",
				Help: "Distinct measurements stored in the archive",
			},
		),

		archiveDiskBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "howfar_archive_disk_bytes",
				Help: "Disk space used by the archive",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howfar_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry the metrics were registered with
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordImport records an accepted capture
func (m *Metrics) RecordImport(c *archive.Capture) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(statusSuccess).Inc()
	m.recordsImported.WithLabelValues("read").Add(float64(c.Records))
	m.recordsImported.WithLabelValues("new").Add(float64(c.NewRecords))
}

// RecordImportFailure records a rejected upload; class is empty for
// failures not caused by the uploaded data
func (m *Metrics) RecordImportFailure(class string) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(statusError).Inc()
	if class != "" {
		m.decodeFailuresTotal.WithLabelValues(class).Inc()
	}
}

// UpdateArchiveStats updates the archive gauges
func (m *Metrics) UpdateArchiveStats(stats *archive.Stats) {
	if m == nil || stats == nil {
		return
	}
	m.archiveCaptures.Set(float64(stats.Captures))
	m.archiveRecords.Set(float64(stats.Records))
	m.archiveDiskBytes.Set(float64(stats.DiskUsage))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Record request in flight
		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Call the original handler
		handler(rw, r)

		// Record metrics
		duration := time.Since(start)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, duration)
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
