package usecase

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/adapter"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/i18n"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

const bookingConfirmationTask = "booking_confirmation_email"

// NotificationUseCase builds and sends outgoing email. OTP mails are sent
// inline so callers can react to failure; booking confirmations go through
// the task queue and never fail the caller.
type NotificationUseCase interface {
	SendOTP(ctx context.Context, email, code string, purpose repository.OTPPurpose, ttl time.Duration) error
	SendAdminReset(ctx context.Context, admin *model.Admin, code string, ttl time.Duration) error
	BookingConfirmed(ctx context.Context, user *model.User, sub *model.Subscription)
}

type notificationUC struct {
	mailer          adapter.Mailer
	queue           adapter.TaskQueue
	tr              *i18n.Translator
	organizer       string
	sessionDuration time.Duration
	log             *zerolog.Logger
}

func NewNotificationUseCase(mailer adapter.Mailer, queue adapter.TaskQueue, tr *i18n.Translator, organizerEmail string, sessionDuration time.Duration, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{
		mailer:          mailer,
		queue:           queue,
		tr:              tr,
		organizer:       organizerEmail,
		sessionDuration: sessionDuration,
		log:             &l,
	}
}

func (n *notificationUC) SendOTP(ctx context.Context, email, code string, purpose repository.OTPPurpose, ttl time.Duration) error {
	defer logging.TraceDuration(n.log, "NotificationUC.SendOTP")()
	prefix := "otp_register"
	if purpose == repository.OTPLogin {
		prefix = "otp_login"
	}
	mins := int(ttl.Minutes())
	m := &adapter.Mail{
		To:      email,
		Subject: n.tr.T(prefix + "_subject"),
		Text:    n.tr.T(prefix+"_text", code, mins),
		HTML:    n.tr.T(prefix+"_html", code, mins),
	}
	return n.send(ctx, "otp_"+string(purpose), m)
}

func (n *notificationUC) SendAdminReset(ctx context.Context, admin *model.Admin, code string, ttl time.Duration) error {
	defer logging.TraceDuration(n.log, "NotificationUC.SendAdminReset")()
	mins := int(ttl.Minutes())
	m := &adapter.Mail{
		To:      admin.Email,
		Subject: n.tr.T("admin_reset_subject"),
		Text:    n.tr.T("admin_reset_text", admin.Name, code, mins),
		HTML:    n.tr.T("admin_reset_html", html.EscapeString(admin.Name), code, mins),
	}
	return n.send(ctx, "admin_reset", m)
}

// BookingConfirmed queues the confirmation mail with the calendar attached.
func (n *notificationUC) BookingConfirmed(ctx context.Context, user *model.User, sub *model.Subscription) {
	m := n.confirmationMail(user, sub)
	log := logging.With(ctx, n.log)
	err := n.queue.Submit(bookingConfirmationTask, func(ctx context.Context) error {
		return n.send(ctx, "booking_confirmation", m)
	})
	if err != nil {
		metrics.IncMail("booking_confirmation", "dropped")
		log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("confirmation email not queued")
	}
}

func (n *notificationUC) send(ctx context.Context, kind string, m *adapter.Mail) error {
	if err := n.mailer.Send(ctx, m); err != nil {
		metrics.IncMail(kind, "failed")
		logging.With(ctx, n.log).Error().Err(err).Str("kind", kind).Msg("mail send failed")
		return err
	}
	metrics.IncMail(kind, "sent")
	return nil
}

func (n *notificationUC) confirmationMail(user *model.User, sub *model.Subscription) *adapter.Mail {
	country := sub.UserCountry
	name := user.DisplayName()

	var text, body strings.Builder
	text.WriteString(n.tr.T("booking_confirmed_greeting", name) + "\n\n")
	text.WriteString(n.tr.T("booking_confirmed_intro", sub.PlanName) + "\n")
	body.WriteString("<p>" + html.EscapeString(n.tr.T("booking_confirmed_greeting", name)) + "</p>")
	body.WriteString("<p>" + html.EscapeString(n.tr.T("booking_confirmed_intro", sub.PlanName)) + "</p><ul>")

	events := make([]booking.CalendarEvent, 0, len(sub.Sessions))
	for i, s := range sub.Sessions {
		when := booking.FormatForDisplay(s.StartsAtUTC, country, booking.StyleLong)
		line := n.tr.T("booking_confirmed_session", i+1, when, s.Timezone)
		text.WriteString(line + "\n")
		body.WriteString("<li>" + html.EscapeString(line) + "</li>")
		events = append(events, booking.CalendarEvent{
			StartsAt:  s.StartsAtUTC,
			Duration:  n.sessionDuration,
			Notes:     s.Notes,
			Cancelled: s.Status == model.SessionStatusCancelled,
		})
	}
	total := n.tr.T("booking_confirmed_total", sub.PlanPrice, sub.PlanCurrency)
	outro := n.tr.T("booking_confirmed_outro")
	text.WriteString("\n" + total + "\n" + outro + "\n")
	body.WriteString("</ul><p>" + html.EscapeString(total) + "</p><p>" + html.EscapeString(outro) + "</p>")

	ics := booking.BuildCalendar(booking.CalendarRequest{
		SubscriptionID: sub.ID,
		OrganizerEmail: n.organizer,
		AttendeeEmail:  user.Email,
		AttendeeName:   strings.TrimSpace(fmt.Sprintf("%s %s", user.FirstName, user.LastName)),
		PlanName:       sub.PlanName,
		Events:         events,
	})

	return &adapter.Mail{
		To:      user.Email,
		Subject: n.tr.T("booking_confirmed_subject", sub.PlanName),
		Text:    text.String(),
		HTML:    body.String(),
		Attachments: []adapter.Attachment{{
			Filename:    booking.CalendarFileName,
			ContentType: booking.CalendarContentType,
			Content:     []byte(ics),
		}},
	}
}
