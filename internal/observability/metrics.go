package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

const namespace = "outage_alerts"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Ingest metrics.
	ReportsIngested *prometheus.CounterVec // labels: source={official,crowdsourced}
	ReportFailures  *prometheus.CounterVec // labels: reason={validation,persistence}
	ReportGeocode   *prometheus.CounterVec // labels: status

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={ok,empty,error}
	GeocodeCache       *prometheus.CounterVec   // labels: backend={memory,redis}, result={hit,miss,error}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	GeocodeEnabled     prometheus.Gauge

	// Alert pipeline metrics.
	ReportsConsumed         prometheus.Counter
	AlertsProduced          prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsIngested,
		m.ReportFailures,
		m.ReportGeocode,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.ReportsConsumed,
		m.AlertsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_ingested_total",
			Help:      "Outage reports stored, by source.",
		}, []string{"source"}),
		ReportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_failures_total",
			Help:      "Outage reports rejected, by reason.",
		}, []string{"reason"}),
		ReportGeocode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_geocode_total",
			Help:      "Final geocoding status of stored reports.",
		}, []string{"status"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by backend and result.",
		}, []string{"backend", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when a geocoding provider is configured, 0 otherwise.",
		}),
		ReportsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_consumed_total",
			Help:      "Report messages read by the alert pipeline.",
		}),
		AlertsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_produced_total",
			Help:      "Alerts written to the alerts topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transform_errors_total",
			Help:      "Report messages that could not be turned into alerts.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_pipeline_running",
			Help:      "1 when the alert pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_batch_size",
			Help:      "Number of report messages per batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_batch_processing_duration_seconds",
			Help:      "Duration of a complete consume-match-produce cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ReportIngested implements domain.IngestObserver.
func (m *Metrics) ReportIngested(source domain.Source, geocodeStatus string) {
	m.ReportsIngested.WithLabelValues(string(source)).Inc()
	m.ReportGeocode.WithLabelValues(geocodeStatus).Inc()
}

// ReportFailed implements domain.IngestObserver.
func (m *Metrics) ReportFailed(reason string) {
	m.ReportFailures.WithLabelValues(reason).Inc()
}
