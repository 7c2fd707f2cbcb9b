package apiscope

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "apiscope"

type metrics struct {
	registry     *prometheus.Registry
	enqueued     prometheus.Counter
	sent         prometheus.Counter
	dropped      *prometheus.CounterVec
	sendDuration prometheus.Histogram
	queueDepth   prometheus.GaugeFunc
}

func newMetrics(registry *prometheus.Registry, queueLen func() int) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &metrics{
		registry: registry,
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_enqueued_total",
			Help:      "Records accepted into the dispatch queue.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_sent_total",
			Help:      "Records delivered to the collector.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_dropped_total",
			Help:      "Records dropped before delivery, by reason.",
		}, []string{"reason"}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent posting a record to the collector.",
			Buckets:   prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Records waiting in the dispatch queue.",
		}, func() float64 { return float64(queueLen()) }),
	}
	registry.MustRegister(m.enqueued, m.sent, m.dropped, m.sendDuration, m.queueDepth)
	return m
}
