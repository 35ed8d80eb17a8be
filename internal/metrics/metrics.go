// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelFits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatra_forecast_model_fits_total",
		Help: "Total number of forecast models fitted.",
	})
	ModelFitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatra_forecast_model_fit_failures_total",
		Help: "Total number of failed forecast model fits.",
	})
	ModelFitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "yatra_forecast_model_fit_duration_seconds",
		Help:    "Duration of history generation plus model fit.",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
	ForecastFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatra_forecast_fallbacks_total",
		Help: "Admissions that used the flat baseline because no forecast was available.",
	})
	PassesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatra_queue_passes_issued_total",
		Help: "Total number of darshan passes issued.",
	}, []string{"site", "slot_class"})
	PassesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatra_queue_passes_cancelled_total",
		Help: "Total number of passes removed by cancellation.",
	})
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatra_alerts_raised_total",
		Help: "Total number of alerts raised.",
	}, []string{"site", "kind"})
	DensityReadings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatra_density_readings_total",
		Help: "Density readings accepted, by source.",
	}, []string{"source"})
	DensityRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatra_density_readings_rejected_total",
		Help: "Density readings rejected as malformed.",
	})
	SurgeActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yatra_surge_active",
		Help: "1 while the process-wide surge flag is set.",
	})
)
