package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	DocumentsConsumed prometheus.Counter
	EventsProduced    prometheus.Counter
	DecodeErrors      *prometheus.CounterVec // labels: kind={malformed_xml,missing_field,...}
	ResolutionErrors  *prometheus.CounterVec // labels: kind={no_preference_declared,dangling_reference}
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	EventsPerDocument       prometheus.Histogram
	LastMaxMagnitude        prometheus.Gauge

	// FDSN client metrics.
	FDSNRequests    *prometheus.CounterVec // labels: outcome={success,error,no_data}
	FDSNCache       *prometheus.CounterVec // labels: result={hit,miss}
	FDSNAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.DocumentsConsumed,
		m.EventsProduced,
		m.DecodeErrors,
		m.ResolutionErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EventsPerDocument,
		m.LastMaxMagnitude,
		m.FDSNRequests,
		m.FDSNCache,
		m.FDSNAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		DocumentsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_consumed_total",
			Help:      help("Total QuakeML documents read from the source topic."),
		}),
		EventsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_produced_total",
			Help:      help("Total resolved events written to the sinks."),
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      help("Documents rejected by the decoder, by error kind."),
		}, []string{"kind"}),
		ResolutionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_errors_total",
			Help:      help("Documents rejected because an event's preferred origin or magnitude did not resolve."),
		}, []string{"kind"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of documents per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-transform-load cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EventsPerDocument: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "events_per_document",
			Help:      help("Number of events in each decoded catalog."),
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 20000},
		}),
		LastMaxMagnitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_catalog_max_magnitude",
			Help:      help("Maximum preferred magnitude of the most recent catalog that had one."),
		}),
		FDSNRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fdsn_requests_total",
			Help:      help("FDSN event service requests by outcome."),
		}, []string{"outcome"}),
		FDSNCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fdsn_cache_total",
			Help:      help("FDSN catalog cache lookups by result."),
		}, []string{"result"}),
		FDSNAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fdsn_api_duration_seconds",
			Help:      help("FDSN event service request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
