package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoproc_runs_total",
			Help: "Total number of pipeline runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videoproc_run_duration_seconds",
			Help:    "End to end pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	TransformsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videoproc_transforms_inflight",
			Help: "Number of pipeline runs currently holding a transform slot",
		},
	)

	DedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoproc_dedup_hits_total",
			Help: "Duplicate deliveries short-circuited by the message id cache",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoproc_outbox_published_total",
			Help: "Outbox events published to the event topic by result",
		},
		[]string{"status"},
	)
)
