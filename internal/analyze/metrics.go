package analyze

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysesTotal counts finished analyses by outcome (ok or an error kind).
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustlens_analyses_total",
		Help: "Total number of page analyses by outcome",
	}, []string{"outcome"})

	// analysisDuration tracks end-to-end analysis latency.
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trustlens_analysis_duration_seconds",
		Help:    "Time taken to analyze one product page",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// fetchesTotal counts page loads by renderer.
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustlens_fetches_total",
		Help: "Total number of page loads by renderer and purpose",
	}, []string{"renderer", "purpose"})

	// detectionsTotal counts positive findings per detector.
	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustlens_detections_total",
		Help: "Total number of positive findings by detector",
	}, []string{"detector"})

	// detectorFailures counts contained detector panics.
	detectorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustlens_detector_failures_total",
		Help: "Total number of detector failures by detector",
	}, []string{"detector"})

	// gradesTotal counts issued trust grades.
	gradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustlens_grades_total",
		Help: "Total number of trust grades issued by grade",
	}, []string{"grade"})

	// persistenceErrors counts price history failures that were downgraded
	// to report notes.
	persistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustlens_persistence_errors_total",
		Help: "Total number of price history failures by operation",
	}, []string{"op"})
)
