package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"arbwatch/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messages        *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	spread          prometheus.Gauge
	decisionLatency prometheus.Histogram
	signals         prometheus.Counter
	profit          prometheus.Counter
	pipelineDepth   prometheus.Gauge
}

// New creates a recorder registered on reg. Pass prometheus.DefaultRegisterer in production
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		messages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbwatch_feed_messages_total",
				Help: "Inbound feed messages by venue and decode result",
			},
			[]string{"venue", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arbwatch_last_price",
				Help: "Last decoded price per venue",
			},
			[]string{"venue"},
		),
		spread: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbwatch_spread",
			Help: "Most recent cross-venue spread (venue A - venue B)",
		}),
		decisionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbwatch_decision_duration_seconds",
			Help:    "Self-measured cost of the spread computation step",
			Buckets: []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3},
		}),
		signals: f.NewCounter(prometheus.CounterOpts{
			Name: "arbwatch_signals_total",
			Help: "Arbitrage signals acted upon",
		}),
		profit: f.NewCounter(prometheus.CounterOpts{
			Name: "arbwatch_simulated_profit_total",
			Help: "Sum of idealized profit captured by simulated trades",
		}),
		pipelineDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbwatch_pipeline_buffer_depth",
			Help: "Events waiting to be delivered to sinks",
		}),
	}
}

// RecordMessage counts an inbound message; result is "decoded" or "skipped".
func (r *Recorder) RecordMessage(venue models.Venue, result string) {
	r.messages.WithLabelValues(string(venue), result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a venue.
func (r *Recorder) RecordLastPrice(venue models.Venue, price float64) {
	r.lastPrice.WithLabelValues(string(venue)).Set(price)
}

func (r *Recorder) RecordSpread(spread float64) {
	r.spread.Set(spread)
}

func (r *Recorder) RecordDecisionLatency(d time.Duration) {
	r.decisionLatency.Observe(d.Seconds())
}

func (r *Recorder) RecordSignal(profit float64) {
	r.signals.Inc()
	r.profit.Add(profit)
}

func (r *Recorder) RecordPipelineDepth(n int) {
	r.pipelineDepth.Set(float64(n))
}
