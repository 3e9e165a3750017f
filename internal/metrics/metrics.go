package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ridesync", Name: "offline_queue_depth",
		Help: "Number of operations waiting in the offline queue",
	})
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridesync", Name: "sync_operations_total",
			Help: "Queued operations processed by drain passes, by result",
		},
		[]string{"type", "result"},
	)
	SyncPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ridesync", Name: "sync_pass_duration_seconds",
		Help: "Duration of one drain pass over the offline queue",
	})
	DeadLettersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridesync", Name: "dead_letters_total",
		Help: "Operations archived after repeatedly blocking the queue head",
	})
	NegotiationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ridesync", Name: "negotiation_outcomes_total",
			Help: "Terminal outcomes of driver negotiation sessions",
		},
		[]string{"outcome"},
	)
)
