// Package observability registers Prometheus metrics for the engagement engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bookingCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymfit",
		Subsystem: "booking",
		Name:      "attempts_total",
		Help:      "Booking attempts by outcome.",
	}, []string{"outcome"})

	notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymfit",
		Subsystem: "notify",
		Name:      "notifications_total",
		Help:      "Notification decisions by kind and outcome.",
	}, []string{"kind", "outcome"})

	assistantCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymfit",
		Subsystem: "assistant",
		Name:      "requests_total",
		Help:      "Assistant requests by result (ok or fallback).",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(bookingCounter, notificationCounter, assistantCounter)
}

// RecordBooking counts a booking attempt outcome
// (booked, capacity_exceeded, duplicate, not_found, cancelled, error).
func RecordBooking(outcome string) {
	bookingCounter.WithLabelValues(outcome).Inc()
}

// RecordNotification counts a deduplicator decision (created or suppressed).
func RecordNotification(kind, outcome string) {
	notificationCounter.WithLabelValues(kind, outcome).Inc()
}

// RecordAssistant counts an assistant request result (ok or fallback).
func RecordAssistant(result string) {
	assistantCounter.WithLabelValues(result).Inc()
}
