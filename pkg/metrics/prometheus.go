package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	symbolsProcessed prometheus.Gauge
	symbolsFailed    prometheus.Gauge
	signalsTriggered prometheus.Gauge
	ledgerOps        *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtlestock_batch_runs_total",
				Help: "Total number of batch signal runs by terminal status",
			},
			[]string{"status"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "turtlestock_batch_run_duration_seconds",
				Help:    "Duration of batch signal runs in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		symbolsProcessed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "turtlestock_run_symbols_processed",
				Help: "Symbols processed in the latest batch run",
			},
		),
		symbolsFailed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "turtlestock_run_symbols_failed",
				Help: "Symbols failed in the latest batch run",
			},
		),
		signalsTriggered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "turtlestock_run_signals_triggered",
				Help: "Breakout signals triggered in the latest batch run",
			},
		),
		ledgerOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtlestock_ledger_operations_total",
				Help: "Total number of ledger mutations by operation",
			},
			[]string{"op"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtlestock_errors_total",
				Help: "Total number of errors encountered by kind",
			},
			[]string{"kind"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turtlestock_last_price",
				Help: "Last quoted price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordRunResult records one finished batch run.
func (r *Recorder) RecordRunResult(status string, seconds float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(seconds)
}

// RecordSymbols records per-run symbol counts.
func (r *Recorder) RecordSymbols(processed, failed int) {
	r.symbolsProcessed.Set(float64(processed))
	r.symbolsFailed.Set(float64(failed))
}

// RecordSignalsTriggered records the size of the latest trigger set.
func (r *Recorder) RecordSignalsTriggered(n int) {
	r.signalsTriggered.Set(float64(n))
}

// RecordLedgerOp records a ledger mutation.
func (r *Recorder) RecordLedgerOp(op string) {
	r.ledgerOps.WithLabelValues(op).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
