package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the language detector
type Metrics struct {
	// Training pipeline metrics
	TrainingRecordsTotal   *prometheus.CounterVec
	TrainingRecordDuration prometheus.Histogram
	CorpusLinesSkipped     prometheus.Counter
	KmersRecordedTotal     prometheus.Counter
	TrainingRunsTotal      *prometheus.CounterVec
	TrainingRunDuration    prometheus.Histogram
	QueueDepth             prometheus.Gauge

	// Profile metrics
	LanguagesTrained         prometheus.Gauge
	ProfileEntriesByLanguage *prometheus.GaugeVec

	// Classification metrics
	ClassificationsTotal      *prometheus.CounterVec
	ClassificationErrorsTotal *prometheus.CounterVec
	ClassificationDuration    prometheus.Histogram
	QueryProfileEntries       prometheus.Histogram

	// Transport metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates all detector metrics and registers them with reg
func NewMetrics(instanceID string, reg prometheus.Registerer) *Metrics {
	labels := prometheus.Labels{"instance_id": instanceID}
	factory := promauto.With(reg)

	return &Metrics{
		// Training pipeline metrics
		TrainingRecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "records_total",
			Help:        "Total number of training records handled, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		TrainingRecordDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "record_duration_seconds",
			Help:        "Histogram of per-record kmer extraction durations",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}),
		CorpusLinesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "lines_skipped_total",
			Help:        "Total number of malformed corpus lines skipped",
			ConstLabels: labels,
		}),
		KmersRecordedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "kmers_recorded_total",
			Help:        "Total number of kmer occurrences recorded",
			ConstLabels: labels,
		}),
		TrainingRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "runs_total",
			Help:        "Total number of training runs, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		TrainingRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "run_duration_seconds",
			Help:        "Histogram of full training run durations",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms to ~5.5min
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "langdetect",
			Subsystem:   "training",
			Name:        "queue_depth",
			Help:        "Current number of records waiting in the training queue",
			ConstLabels: labels,
		}),

		// Profile metrics
		LanguagesTrained: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "langdetect",
			Subsystem:   "profile",
			Name:        "languages",
			Help:        "Number of languages in the published profile store",
			ConstLabels: labels,
		}),
		ProfileEntriesByLanguage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "langdetect",
			Subsystem:   "profile",
			Name:        "entries",
			Help:        "Number of ranked kmers kept per language",
			ConstLabels: labels,
		}, []string{"language"}),

		// Classification metrics
		ClassificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "query",
			Name:        "classifications_total",
			Help:        "Total number of successful classifications, by winning language",
			ConstLabels: labels,
		}, []string{"language"}),
		ClassificationErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "query",
			Name:        "errors_total",
			Help:        "Total number of failed classifications, by error code",
			ConstLabels: labels,
		}, []string{"code"}),
		ClassificationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "langdetect",
			Subsystem:   "query",
			Name:        "duration_seconds",
			Help:        "Histogram of classification durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		QueryProfileEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "langdetect",
			Subsystem:   "query",
			Name:        "profile_entries",
			Help:        "Histogram of ranked kmers kept per query",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
		}),

		// Transport metrics
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "langdetect",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "Histogram of HTTP request durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route"}),
		GRPCRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "langdetect",
			Subsystem:   "grpc",
			Name:        "requests_total",
			Help:        "Total number of gRPC requests",
			ConstLabels: labels,
		}, []string{"method", "code"}),
	}
}

// RecordLineSkipped counts one malformed corpus line
func (m *Metrics) RecordLineSkipped() {
	m.CorpusLinesSkipped.Inc()
}

// RecordProcessed records one successfully handled training record
func (m *Metrics) RecordProcessed(duration time.Duration) {
	m.TrainingRecordsTotal.WithLabelValues("processed").Inc()
	m.TrainingRecordDuration.Observe(duration.Seconds())
}

// RecordFailed records one training record whose handler failed
func (m *Metrics) RecordFailed() {
	m.TrainingRecordsTotal.WithLabelValues("failed").Inc()
}

// SetQueueDepth updates the training queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordKmers adds recorded kmer occurrences
func (m *Metrics) RecordKmers(n int) {
	m.KmersRecordedTotal.Add(float64(n))
}

// RecordTrainingRun records a finished training run
func (m *Metrics) RecordTrainingRun(outcome string, duration time.Duration) {
	m.TrainingRunsTotal.WithLabelValues(outcome).Inc()
	m.TrainingRunDuration.Observe(duration.Seconds())
}

// UpdateProfiles replaces the per-language profile gauges
func (m *Metrics) UpdateProfiles(sizes map[string]int) {
	m.ProfileEntriesByLanguage.Reset()
	for lang, n := range sizes {
		m.ProfileEntriesByLanguage.WithLabelValues(lang).Set(float64(n))
	}
	m.LanguagesTrained.Set(float64(len(sizes)))
}

// RecordClassification records a successful classification
func (m *Metrics) RecordClassification(language string, queryEntries int, duration time.Duration) {
	m.ClassificationsTotal.WithLabelValues(language).Inc()
	m.QueryProfileEntries.Observe(float64(queryEntries))
	m.ClassificationDuration.Observe(duration.Seconds())
}

// RecordClassificationError records a failed classification
func (m *Metrics) RecordClassificationError(code string) {
	m.ClassificationErrorsTotal.WithLabelValues(code).Inc()
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, httpStatusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordGRPCRequest records one served gRPC request
func (m *Metrics) RecordGRPCRequest(method, code string) {
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
