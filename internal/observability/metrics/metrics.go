package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "estate_billing_"

	resultSuccess = "success"
	resultPartial = "partial"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	billingRunsTotal   *prometheus.CounterVec
	billingRunLatency  *prometheus.HistogramVec
	estatesAggregated  prometheus.Counter
	estateErrorsTotal  prometheus.Counter
	summaryCacheEvents *prometheus.CounterVec

	forecastRunsTotal   *prometheus.CounterVec
	forecastRunLatency  *prometheus.HistogramVec
	predictionsUpserted prometheus.Counter

	reconcileRunsTotal    *prometheus.CounterVec
	predictionsReconciled prometheus.Counter
)

// Init registers engine metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		billingRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "billing_runs_total",
				Help: "Total billing aggregation runs by result",
			},
			[]string{"result"},
		)
		billingRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "billing_run_latency_seconds",
				Help:    "Billing aggregation run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		estatesAggregated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "estates_aggregated_total",
				Help: "Total estates aggregated successfully",
			},
		)
		estateErrorsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "estate_errors_total",
				Help: "Total per-estate aggregation failures",
			},
		)
		summaryCacheEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_cache_events_total",
				Help: "Summary cache hits and misses",
			},
			[]string{"event"},
		)

		forecastRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_runs_total",
				Help: "Total forecast runs by result",
			},
			[]string{"result"},
		)
		forecastRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "forecast_run_latency_seconds",
				Help:    "Forecast run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		predictionsUpserted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "predictions_upserted_total",
				Help: "Total prediction rows written",
			},
		)

		reconcileRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_runs_total",
				Help: "Total accuracy reconciliation runs by result",
			},
			[]string{"result"},
		)
		predictionsReconciled = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "predictions_reconciled_total",
				Help: "Total predictions reconciled against actuals",
			},
		)

		prometheus.MustRegister(
			billingRunsTotal,
			billingRunLatency,
			estatesAggregated,
			estateErrorsTotal,
			summaryCacheEvents,
			forecastRunsTotal,
			forecastRunLatency,
			predictionsUpserted,
			reconcileRunsTotal,
			predictionsReconciled,
		)
	})
}

// ObserveBillingRun records one aggregation run.
func ObserveBillingRun(result string, duration time.Duration, estates, estateErrors int) {
	if result == "" {
		result = resultSuccess
	}
	if billingRunsTotal != nil {
		billingRunsTotal.WithLabelValues(result).Inc()
	}
	if billingRunLatency != nil {
		billingRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if estatesAggregated != nil && estates > 0 {
		estatesAggregated.Add(float64(estates))
	}
	if estateErrorsTotal != nil && estateErrors > 0 {
		estateErrorsTotal.Add(float64(estateErrors))
	}
}

// IncSummaryCacheEvent counts a cache hit or miss.
func IncSummaryCacheEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if summaryCacheEvents != nil {
		summaryCacheEvents.WithLabelValues(event).Inc()
	}
}

// ObserveForecastRun records one forecast run.
func ObserveForecastRun(result string, duration time.Duration, predictions int) {
	if result == "" {
		result = resultSuccess
	}
	if forecastRunsTotal != nil {
		forecastRunsTotal.WithLabelValues(result).Inc()
	}
	if forecastRunLatency != nil {
		forecastRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if predictionsUpserted != nil && predictions > 0 {
		predictionsUpserted.Add(float64(predictions))
	}
}

// ObserveReconcileRun records one accuracy reconciliation pass.
func ObserveReconcileRun(result string, reconciled int) {
	if result == "" {
		result = resultSuccess
	}
	if reconcileRunsTotal != nil {
		reconcileRunsTotal.WithLabelValues(result).Inc()
	}
	if predictionsReconciled != nil && reconciled > 0 {
		predictionsReconciled.Add(float64(reconciled))
	}
}

// Exported result constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultPartial = resultPartial
	ResultError   = resultError
)
