package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveryAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification",
			Name:      "delivery_attempts_total",
			Help:      "Total delivery attempts by outcome.",
		},
		[]string{"outcome"}, // sent, failed, dry_run
	)
	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notification",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider send calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	workerBatchesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification",
			Name:      "worker_batches_total",
			Help:      "Total worker poll cycles by result.",
		},
		[]string{"result"}, // drained, empty, fetch_error
	)
	workerBatchDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "notification",
			Name:      "worker_batch_duration_seconds",
			Help:      "Duration of one worker batch drain.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
