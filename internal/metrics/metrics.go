// Package metrics exposes Prometheus counters for the scheduling workflow.
// The counters are registered on the default registry and served by the
// /metrics endpoint in cmd/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProposalsAccepted counts bookings committed by ProposeBooking.
	ProposalsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitime_booking_proposals_accepted_total",
		Help: "Number of booking proposals accepted and committed.",
	})

	// ProposalsRejected counts proposals rejected due to a room conflict.
	ProposalsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitime_booking_proposals_rejected_total",
		Help: "Number of booking proposals rejected because the room was already booked.",
	})

	// Reschedules counts successful reschedule operations.
	Reschedules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitime_booking_reschedules_total",
		Help: "Number of bookings moved to a new slot.",
	})

	// Cancellations counts successful cancel operations.
	Cancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitime_booking_cancellations_total",
		Help: "Number of bookings cancelled.",
	})
)
