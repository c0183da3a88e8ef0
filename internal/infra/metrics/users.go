package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usersRegisteredTotal,
		otpSentTotal,
		otpVerifyTotal,
		rateLimitTriggeredTotal,
		mailTotal,
	)
}

var (
	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new users registered.",
		},
	)

	otpSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_sent_total",
			Help: "One-time codes issued, labeled by purpose.",
		},
		[]string{"purpose"}, // 'register', 'login', 'admin_reset'
	)

	otpVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verify_total",
			Help: "One-time code checks by result.",
		},
		[]string{"result"}, // 'ok', 'invalid', 'locked'
	)

	rateLimitTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_triggered_total",
			Help: "Requests rejected by a rate limiter.",
		},
		[]string{"scope"},
	)

	mailTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_total",
			Help: "Outgoing emails by kind and status.",
		},
		[]string{"kind", "status"}, // status: 'sent', 'failed'
	)
)

func IncUserRegistered() {
	usersRegisteredTotal.Inc()
}

func IncOTPSent(purpose string) {
	otpSentTotal.WithLabelValues(norm(purpose)).Inc()
}

func IncOTPVerify(result string) {
	otpVerifyTotal.WithLabelValues(norm(result)).Inc()
}

func IncRateLimitTriggered(scope string) {
	rateLimitTriggeredTotal.WithLabelValues(norm(scope)).Inc()
}

func IncMail(kind, status string) {
	mailTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
