package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		bookingsTotal,
		bookingRejectionsTotal,
		sessionsBookedTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions moved to expired by the expiry job.",
		},
	)

	bookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking attempts by outcome.",
		},
		[]string{"result"}, // 'created', 'rejected', 'error'
	)

	bookingRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Booking violations by code.",
		},
		[]string{"code"},
	)

	sessionsBookedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_booked_total",
			Help: "Total number of session slots persisted.",
		},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func IncBooking(result string) {
	bookingsTotal.WithLabelValues(norm(result)).Inc()
}

func IncBookingRejection(code string) {
	bookingRejectionsTotal.WithLabelValues(code).Inc()
}

func AddSessionsBooked(n int) {
	sessionsBookedTotal.Add(float64(n))
}
