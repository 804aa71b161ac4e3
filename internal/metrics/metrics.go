// Package metrics provides Prometheus metrics for newsgrid.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ArticlesIngested counts articles inserted by ingestion, per feed label.
	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsgrid",
			Name:      "articles_ingested_total",
			Help:      "Total number of new articles stored by feed ingestion",
		},
		[]string{"source"},
	)

	// FeedErrors counts feeds that failed to fetch, parse or store.
	FeedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsgrid",
			Name:      "feed_errors_total",
			Help:      "Total number of failed feed ingestions",
		},
		[]string{"source"},
	)

	// Summaries counts summarization requests by entry path and outcome.
	Summaries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsgrid",
			Name:      "summaries_total",
			Help:      "Total number of summarization requests",
		},
		[]string{"path", "outcome"},
	)

	// InferenceRequests counts outbound inference attempts by result status.
	InferenceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsgrid",
			Name:      "inference_requests_total",
			Help:      "Total number of inference endpoint attempts",
		},
		[]string{"status"},
	)
)

// RecordIngested adds n new articles for source.
func RecordIngested(source string, n int) {
	ArticlesIngested.WithLabelValues(source).Add(float64(n))
}

// RecordFeedError records a failed feed.
func RecordFeedError(source string) {
	FeedErrors.WithLabelValues(source).Inc()
}

// RecordSummary records a summarization outcome such as "cache_hit", "generated" or an error kind.
func RecordSummary(path, outcome string) {
	Summaries.WithLabelValues(path, outcome).Inc()
}

// RecordInference records one inference attempt. status is an HTTP code or "timeout"/"error".
func RecordInference(status string) {
	InferenceRequests.WithLabelValues(status).Inc()
}
