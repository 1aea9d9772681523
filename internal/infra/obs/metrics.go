package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the messaging counters and the HTTP request histogram.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.HistogramVec
	MessagesSent    prometheus.Counter
	MessagesFailed  prometheus.Counter
	MessagesRetried prometheus.Counter
	ThreadsCreated  prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Messages confirmed by the store.",
		}),
		MessagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_failed_total",
			Help: "Send attempts rejected by the store.",
		}),
		MessagesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_retried_total",
			Help: "Failed sends replayed by the user.",
		}),
		ThreadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threads_created_total",
			Help: "New conversation threads.",
		}),
	}
	registry.MustRegister(m.HTTPRequests, m.MessagesSent, m.MessagesFailed, m.MessagesRetried, m.ThreadsCreated)
	return m
}

func (m *Metrics) MessageConfirmed() { m.MessagesSent.Inc() }
func (m *Metrics) MessageFailed()    { m.MessagesFailed.Inc() }
func (m *Metrics) MessageRetried()   { m.MessagesRetried.Inc() }
func (m *Metrics) ThreadCreated()    { m.ThreadsCreated.Inc() }

// Handler serves the scrape endpoint for this process's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
