package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
	pipelineRuns     *prometheus.HistogramVec
	knowledgeItems   *prometheus.CounterVec
	modelPerformance *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsage_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsage_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinsage_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinsage_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		pipelineRuns: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinsage_pipeline_run_seconds",
				Help:    "Duration of full pipeline runs per symbol",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"symbol"},
		),
		knowledgeItems: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsage_knowledge_items_total",
				Help: "Total knowledge items written per symbol",
			},
			[]string{"symbol"},
		),
		modelPerformance: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinsage_model_performance",
				Help: "Latest evaluation metric for the active model",
			},
			[]string{"symbol", "purpose", "metric"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPipelineRun records the duration of one full pipeline run.
func (r *Recorder) RecordPipelineRun(symbol string, seconds float64) {
	r.pipelineRuns.WithLabelValues(symbol).Observe(seconds)
}

// RecordKnowledgeItems counts knowledge items written for a symbol.
func (r *Recorder) RecordKnowledgeItems(symbol string, n int) {
	r.knowledgeItems.WithLabelValues(symbol).Add(float64(n))
}

// RecordModelPerformance publishes the evaluation metric of a freshly
// activated model.
func (r *Recorder) RecordModelPerformance(symbol, purpose, metric string, value float64) {
	r.modelPerformance.WithLabelValues(symbol, purpose, metric).Set(value)
}
