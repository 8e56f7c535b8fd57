// Package metrics registers the Prometheus collectors of the booking
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Bookings created, by booking type",
		},
		[]string{"type"},
	)

	BookingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Booking requests rejected, by reason",
		},
		[]string{"reason"},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status changes, by source and target status",
		},
		[]string{"from", "to"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment webhook events received, by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, by route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
