package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sosmed_uploader_events_total",
		Help: "Total number of inbound events, by type and terminal state",
	}, []string{"type", "state"})

	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sosmed_uploader_publish_total",
		Help: "Publish outcomes per destination and status",
	}, []string{"destination", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sosmed_uploader_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ImageAdaptationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sosmed_uploader_image_adaptations_total",
		Help: "Image geometry adaptations, by result",
	}, []string{"result"})

	QuotaUsed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sosmed_uploader_quota_used",
		Help: "Posts counted today per quota namespace",
	}, []string{"namespace"})

	DeadLetteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sosmed_uploader_dead_lettered_total",
		Help: "Malformed envelopes forwarded to the dead-letter sink",
	})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sosmed_uploader_breaker_state",
		Help: "Circuit breaker state per destination (0 closed, 1 half-open, 2 open)",
	}, []string{"destination"})

	CleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sosmed_uploader_cleanup_failures_total",
		Help: "Transient video deletions that failed",
	})
)

var GraphRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sosmed_uploader_graph_requests_total",
	Help: "Graph API requests by operation and HTTP status class",
}, []string{"operation", "status"})
