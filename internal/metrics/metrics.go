package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal counts successful predictions by predicted label
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeskin_predictions_total",
		Help: "Total number of successful predictions",
	}, []string{"label"})

	// ErrorsTotal counts user-visible failures by reason
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeskin_errors_total",
		Help: "Total number of failed operations",
	}, []string{"reason"})

	// InferenceLatencySeconds is the histogram of classifier run time
	InferenceLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "safeskin_inference_latency_seconds",
		Help:    "Histogram of classifier inference latency in seconds",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// NavigationsTotal counts view changes by target view
	NavigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeskin_navigations_total",
		Help: "Total number of view changes",
	}, []string{"view"})

	// RecommendationsTotal counts recommendation lookups by matched key
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeskin_recommendations_total",
		Help: "Total number of recommendation lookups",
	}, []string{"key"})

	// ModelAvailable is 1 when the classifier is loaded
	ModelAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "safeskin_model_available",
		Help: "Whether the classifier artifact is loaded (1) or unavailable (0)",
	})
)

// RecordPrediction records a successful classification
func RecordPrediction(label string, took time.Duration) {
	PredictionsTotal.WithLabelValues(label).Inc()
	InferenceLatencySeconds.Observe(took.Seconds())
}

// RecordError records a failed operation
func RecordError(reason string) {
	ErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordNavigation records a view change
func RecordNavigation(view string) {
	NavigationsTotal.WithLabelValues(view).Inc()
}

// RecordRecommendation records a lookup; key is empty on a miss
func RecordRecommendation(key string) {
	if key == "" {
		key = "none"
	}
	RecommendationsTotal.WithLabelValues(key).Inc()
}

// SetModelAvailable updates the availability gauge
func SetModelAvailable(ok bool) {
	if ok {
		ModelAvailable.Set(1)
		return
	}
	ModelAvailable.Set(0)
}
