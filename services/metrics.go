package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_generation_requests_total",
			Help: "Total number of content generation requests by generator and outcome.",
		},
		[]string{"generator", "outcome"},
	)
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_generation_duration_seconds",
			Help:    "Duration of content generation round-trips.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180},
		},
		[]string{"generator"},
	)
	normalizationResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_normalization_results_total",
			Help: "Total number of normalized payloads by result kind.",
		},
		[]string{"kind"},
	)
	librarySaves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_library_saves_total",
			Help: "Total number of items saved to the content library.",
		},
	)
	keywordsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keywords_fetched_total",
			Help: "Total number of keywords fetched from the keyword source.",
		},
	)
)

func init() {
	prometheus.MustRegister(generationRequests, generationDuration, normalizationResults, librarySaves, keywordsFetched)
}
