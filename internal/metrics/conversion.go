// Package metrics exposes Prometheus collectors for the conversion engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Conversions counts finished conversions by source type, target format and outcome.
	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileconv_conversions_total",
		Help: "Total conversions by source media type, target format and outcome",
	}, []string{"source", "target", "outcome"})

	// ConversionDuration tracks wall time of whole conversions, detection included.
	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fileconv_conversion_duration_seconds",
		Help:    "Duration of conversions",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 16), // 1ms to ~33s
	}, []string{"target"})

	// OutputBytes counts bytes committed to output artifacts.
	OutputBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileconv_output_bytes_total",
		Help: "Total bytes written to committed artifacts",
	}, []string{"target"})

	// Inflight is the number of conversions currently running.
	Inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fileconv_inflight_conversions",
		Help: "Conversions currently in progress",
	})
)

// OutcomeOK is the outcome label of a successful conversion.
const OutcomeOK = "ok"

// SourceLabel bounds the source label to a media type essence.
func SourceLabel(essence string) string {
	if essence == "" {
		return "unknown"
	}
	return essence
}
