// Package metrics exposes Prometheus metrics for the campaign run and the
// tracking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the outreach service
type Metrics struct {
	// Approval outcomes by kind (approved, rejected, timed_out, channel_error)
	ApprovalsTotal *prometheus.CounterVec

	// Pending approval requests
	ApprovalsPending prometheus.Gauge

	// Email sends
	EmailsSentTotal   prometheus.Counter
	EmailsFailedTotal prometheus.Counter

	// Tracking events by kind (open, click, bounce)
	TrackingEventsTotal *prometheus.CounterVec

	// Campaign progress
	ClientsTotal     prometheus.Gauge
	ClientsProcessed prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		ApprovalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_approvals_total",
			Help: "Approval requests resolved, by outcome",
		}, []string{"outcome"}),

		ApprovalsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_approvals_pending",
			Help: "Approval requests currently awaiting a decision",
		}),

		EmailsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outreach_emails_sent_total",
			Help: "Emails sent successfully",
		}),

		EmailsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outreach_emails_failed_total",
			Help: "Email send attempts that failed",
		}),

		TrackingEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_tracking_events_total",
			Help: "Tracking events recorded, by kind",
		}, []string{"kind"}),

		ClientsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_clients_total",
			Help: "Clients in the current campaign run",
		}),

		ClientsProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_clients_processed",
			Help: "Clients resolved in the current campaign run",
		}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.ApprovalsTotal,
		m.ApprovalsPending,
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.TrackingEventsTotal,
		m.ClientsTotal,
		m.ClientsProcessed,
	)

	return m
}

// Registry returns the underlying registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
