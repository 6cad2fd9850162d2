package relay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	drainTotal     *prometheus.CounterVec
	sentTotal      prometheus.Counter
	prunedTotal    prometheus.Counter
	reclaimedTotal prometheus.Counter

	drainLatency prometheus.Histogram

	pending prometheus.Gauge
	failed  prometheus.Gauge
	leader  prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		drainTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "drain_total",
			Help:      "Total number of drain ticks.",
		}, []string{"result"}),
		sentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "sent_total",
			Help:      "Total number of messages handed to the provider.",
		}),
		prunedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "pruned_total",
			Help:      "Total number of finalized messages removed by the cleaner.",
		}),
		reclaimedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "outbox",
			Name:      "reclaimed_total",
			Help:      "Total number of stranded retrying messages reclaimed.",
		}),
		drainLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outbox",
			Name:      "drain_latency_seconds",
			Help:      "Latency distribution for one drain tick.",
			Buckets: []float64{
				0.001, 0.005,
				0.01, 0.05,
				0.1, 0.5,
				1, 2, 5, 10,
			},
		}),
		pending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbox",
			Name:      "pending",
			Help:      "Current number of pending messages.",
		}),
		failed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbox",
			Name:      "failed",
			Help:      "Current number of failed messages.",
		}),
		leader: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbox",
			Name:      "relay_leader",
			Help:      "Whether this instance holds the relay leader lock (1/0).",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
