package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_plots"

// Metrics holds the Prometheus counters, histograms, and gauges for the batch
// run and the image API.
type Metrics struct {
	// Upstream fetches.
	FetchRequests  *prometheus.CounterVec   // labels: source={nhc,atcf,hafs}, outcome={success,error,empty}
	FetchDuration  *prometheus.HistogramVec // labels: source
	RecordsFetched *prometheus.CounterVec   // labels: source
	RecordsInvalid *prometheus.CounterVec   // labels: source

	// Batch run.
	StormsProcessed  prometheus.Counter
	StormsSkipped    prometheus.Counter
	ImagesRendered   *prometheus.CounterVec // labels: kind
	ImageFailures    *prometheus.CounterVec // labels: kind
	RenderDuration   *prometheus.HistogramVec
	RunDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
	NotifyErrors     prometheus.Counter

	// Image API.
	APIRequests      *prometheus.CounterVec // labels: route, code
	ImageBytesServed prometheus.Counter
	ImageCache       *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Upstream feed requests by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_records_total",
			Help:      "Forecast records decoded per source.",
		}, []string{"source"}),
		RecordsInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_records_invalid_total",
			Help:      "Forecast records or lines rejected during decoding.",
		}, []string{"source"}),
		StormsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storms_processed_total",
			Help:      "Active storms the batch rendered at least one image for.",
		}),
		StormsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storms_skipped_total",
			Help:      "Active storms skipped because their track or forecast was unavailable.",
		}),
		ImagesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_rendered_total",
			Help:      "Images rendered and stored by kind.",
		}, []string{"kind"}),
		ImageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_failures_total",
			Help:      "Images that failed to render or store by kind.",
		}, []string{"kind"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time to render one image by kind.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete batch run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch run finished.",
		}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Plot notifications that failed to publish.",
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
		ImageBytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_bytes_served_total",
			Help:      "JPEG bytes written to API clients.",
		}),
		ImageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_cache_total",
			Help:      "Image cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchRequests,
		m.FetchDuration,
		m.RecordsFetched,
		m.RecordsInvalid,
		m.StormsProcessed,
		m.StormsSkipped,
		m.ImagesRendered,
		m.ImageFailures,
		m.RenderDuration,
		m.RunDuration,
		m.LastRunTimestamp,
		m.NotifyErrors,
		m.APIRequests,
		m.ImageBytesServed,
		m.ImageCache,
	}
}

// NewMetrics creates all metrics and registers them with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry creates all metrics on a dedicated registry, used by
// the batch to write a textfile without the Go runtime collectors.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
