package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	SendSuccesses      prometheus.Counter
	SendFailures       prometheus.Counter
	OpensTracked       prometheus.Counter
	ClicksTracked      prometheus.Counter
	Redirects          prometheus.Counter
	RemindersScheduled prometheus.Counter
	RemindersSent      prometheus.Counter
	SendDuration       prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SendSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_send_successes",
			Help: "Total number of emails accepted by the outbound provider",
		}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_send_failures",
			Help: "Total number of emails rejected or failed by the outbound provider",
		}),
		OpensTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_opens_tracked",
			Help: "Total number of pixel open events recorded",
		}),
		ClicksTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_clicks_tracked",
			Help: "Total number of link click events recorded",
		}),
		Redirects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_redirects",
			Help: "Total number of tracked link redirects served",
		}),
		RemindersScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_reminders_scheduled",
			Help: "Total number of signing reminders scheduled",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docually_mailer_reminders_sent",
			Help: "Total number of due signing reminders dispatched",
		}),
		SendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docually_mailer_send_duration_seconds",
			Help:    "Time spent in the end-to-end send path",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
