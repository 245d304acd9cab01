// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "suntvalg"

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Inbound email webhook deliveries by outcome",
	}, []string{"result"})

	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Background jobs by kind and outcome",
	}, []string{"kind", "result"})

	LLMRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of chat completion requests",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Outbound emails by template and outcome",
	}, []string{"template", "result"})

	WaitlistEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "waitlist_entries",
		Help:      "Number of waitlist signups",
	})

	DeadLetters = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dead_letters",
		Help:      "Dead-lettered jobs still awaiting retry",
	})
)

// Result labels an outcome as "success" or "error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
