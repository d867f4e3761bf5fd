// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomtracker_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomtracker_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Room state machine
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomtracker_transitions_total",
			Help: "Room state transitions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Expiry sweeper
	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomtracker_sweep_runs_total",
			Help: "Total expiry sweeps executed",
		},
	)

	SweepReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomtracker_sweep_released_total",
			Help: "Rooms released by the expiry sweep",
		},
		[]string{"kind"}, // "reservation" or "occupation"
	)

	SweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomtracker_sweep_failures_total",
			Help: "Per-room failures during expiry sweeps",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomtracker_sweep_duration_seconds",
			Help:    "Expiry sweep duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	SweepTriggerThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomtracker_sweep_trigger_throttled_total",
			Help: "On-demand sweep requests rejected by the rate limiter",
		},
	)

	// Change notifier
	SnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomtracker_snapshots_published_total",
			Help: "Room list snapshots published to subscribers",
		},
	)

	SnapshotsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomtracker_snapshots_dropped_total",
			Help: "Queued snapshots dropped because a subscriber fell behind",
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomtracker_subscribers",
			Help: "Currently attached snapshot subscribers",
		},
	)

	// Infrastructure metrics
	RedisPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomtracker_redis_publish_errors_total",
			Help: "Failed snapshot publishes to Redis",
		},
	)

	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomtracker_redis_latency_seconds",
			Help:    "Redis publish latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
