package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts applicant self-registrations by kind (individual|organization).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_registrations_total",
			Help: "Total number of applicant registrations",
		},
		[]string{"kind"},
	)

	// ApplicationTransitions counts lifecycle transitions by target status.
	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_application_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"to"},
	)

	// DocumentValidations counts intake validation outcomes (accepted|rejected|duplicate).
	DocumentValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_document_validations_total",
			Help: "Total number of document intake validations",
		},
		[]string{"result"},
	)

	// EmailsSent counts outbound notification emails by result (sent|failed).
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_emails_total",
			Help: "Total number of outbound notification emails",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "membership_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
