// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	portuc "appointment-booking/internal/domain/ports/usecase"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/infra/metrics"
)

// Compile-time checks
var (
	_ SubscriptionUseCase        = (*subscriptionUC)(nil)
	_ portuc.SubscriptionExpirer = (*subscriptionUC)(nil)
)

const statsMonths = 12

// BookingSettings are the scheduling knobs from config.
type BookingSettings struct {
	Buffer time.Duration
	// Hours is the grid for availability. When Enforce is set, booked slots
	// must also fall inside it.
	Hours   booking.BusinessHours
	Enforce bool
}

// CreateSubscriptionInput is a user's booking request.
type CreateSubscriptionInput struct {
	PlanID    string
	StartDate string
	Sessions  []booking.SessionRequest
	Notes     string
}

// StatusUpdate is an admin change to a subscription; nil fields are left unchanged.
type StatusUpdate struct {
	Status           *model.SubscriptionStatus
	PaymentStatus    *model.PaymentStatus
	PaymentReference *string
	Notes            *string
}

// SessionView is a slot with its instant rendered for the viewer.
type SessionView struct {
	*model.Session
	Display booking.LocalTime `json:"display"`
}

// SubscriptionView is a subscription rendered for one display country.
type SubscriptionView struct {
	*model.Subscription
	Sessions          []SessionView `json:"sessions"`
	SessionsCompleted int           `json:"sessionsCompleted"`
	SessionsRemaining int           `json:"sessionsRemaining"`
	NextSession       *SessionView  `json:"nextSession"`
	DisplayCountry    string        `json:"displayCountry"`
	DisplayTimezone   string        `json:"displayTimezone"`
}

// BookedSlot is a taken instant as shown publicly, without owner details.
type BookedSlot struct {
	StartsAtUTC time.Time           `json:"utcDateTime"`
	Status      model.SessionStatus `json:"status"`
	booking.LocalTime
}

// SubscriptionUseCase implements the booking flow and subscription administration.
type SubscriptionUseCase interface {
	Create(ctx context.Context, userID string, in CreateSubscriptionInput) (*model.Subscription, error)
	ListMine(ctx context.Context, userID, displayCountry string) ([]*SubscriptionView, error)
	Booked(ctx context.Context, displayCountry string) ([]BookedSlot, error)
	Available(ctx context.Context, startDate, endDate, displayCountry string) ([]booking.OpenSlot, error)

	List(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, int, error)
	Get(ctx context.Context, id string) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, id string, in StatusUpdate) (*model.Subscription, error)
	UpdateSession(ctx context.Context, subID, sessionID string, status model.SessionStatus, notes *string) (*model.Subscription, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.SubscriptionStats, error)
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	plans    repository.SubscriptionPlanRepository
	users    repository.UserRepository
	tm       repository.TransactionManager
	notifier NotificationUseCase
	settings BookingSettings
	now      func() time.Time
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	plans repository.SubscriptionPlanRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	notifier NotificationUseCase,
	settings BookingSettings,
	logger *zerolog.Logger,
) *subscriptionUC {
	if settings.Buffer <= 0 {
		settings.Buffer = booking.DefaultBuffer
	}
	if settings.Hours.Close <= settings.Hours.Open {
		settings.Hours = booking.DefaultBusinessHours()
	}
	return &subscriptionUC{
		subs:     subs,
		plans:    plans,
		users:    users,
		tm:       tm,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
		log:      logger,
	}
}

// WithClock replaces the time source.
func (s *subscriptionUC) WithClock(now func() time.Time) *subscriptionUC {
	s.now = now
	return s
}

// Create validates the whole batch and stores the subscription with all its
// slots in one transaction. The confirmation mail is queued after commit.
func (s *subscriptionUC) Create(ctx context.Context, userID string, in CreateSubscriptionInput) (*model.Subscription, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.Create")()
	log := logging.With(ctx, s.log)

	user, err := s.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	country := strings.TrimSpace(user.Country)
	if country == "" {
		return nil, domain.ErrCountryRequired
	}

	plan, err := s.plans.FindByID(ctx, repository.NoTX, in.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}

	_, err = s.subs.FindLiveByUserAndPlan(ctx, repository.NoTX, user.ID, plan.ID)
	switch {
	case err == nil:
		return nil, domain.ErrAlreadyExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	window, err := booking.WindowFor(in.StartDate, country, plan.DurationDays)
	if err != nil {
		return nil, s.rejected(booking.Reject(booking.CodeInvalidInput, booking.BatchIndex, "startDate",
			"invalid start date %q", in.StartDate))
	}

	existing, err := s.subs.HeldInstantsByUser(ctx, repository.NoTX, user.ID)
	if err != nil {
		return nil, err
	}

	rules := booking.Rules{
		SessionsPerMonth: plan.SessionsPerMonth,
		SessionsPerWeek:  plan.SessionsPerWeek,
		Buffer:           s.settings.Buffer,
	}
	if s.settings.Enforce {
		hours := s.settings.Hours
		rules.Hours = &hours
	}
	slots, err := booking.ValidateBatch(in.Sessions, country, rules, window, existing, s.now().UTC())
	if err != nil {
		return nil, s.rejected(err)
	}

	sub, err := model.NewSubscription(user.ID, user.Email, country, plan, window.Start.UTC())
	if err != nil {
		return nil, err
	}
	sub.EndDate = window.End.UTC()
	sub.Notes = strings.TrimSpace(in.Notes)
	for _, sl := range slots {
		sub.Sessions = append(sub.Sessions, &model.Session{
			ID:             model.NewSessionID(),
			SubscriptionID: sub.ID,
			UserID:         user.ID,
			StartsAtUTC:    sl.UTC,
			LocalDate:      sl.LocalDate,
			LocalTime:      sl.LocalTime,
			Country:        country,
			Timezone:       sl.Timezone,
			Status:         model.SessionStatusScheduled,
			Notes:          sl.Notes,
			CreatedAt:      sub.CreatedAt,
			UpdatedAt:      sub.CreatedAt,
		})
	}

	err = s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return s.subs.Create(ctx, tx, sub)
	})
	if errors.Is(err, domain.ErrSlotTaken) {
		return nil, s.rejected(booking.Reject(booking.CodeSlotConflict, booking.BatchIndex, "sessions",
			"one or more sessions were booked meanwhile, please choose different times"))
	}
	if err != nil {
		metrics.IncBooking("error")
		return nil, err
	}

	metrics.IncBooking("created")
	metrics.AddSessionsBooked(len(sub.Sessions))
	log.Info().Str("subscription_id", sub.ID).Str("plan", plan.Name).Int("sessions", len(sub.Sessions)).Msg("subscription booked")

	s.notifier.BookingConfirmed(ctx, user, sub)
	return sub, nil
}

func (s *subscriptionUC) rejected(err error) error {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		for _, v := range ve.Violations {
			metrics.IncBookingRejection(string(v.Code))
		}
	}
	metrics.IncBooking("rejected")
	return err
}

func (s *subscriptionUC) ListMine(ctx context.Context, userID, displayCountry string) ([]*SubscriptionView, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.ListMine")()

	subs, err := s.subs.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]*SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		country := displayCountry
		if strings.TrimSpace(country) == "" {
			country = sub.UserCountry
		}
		out = append(out, NewSubscriptionView(sub, country, now))
	}
	return out, nil
}

// NewSubscriptionView renders every slot of sub in the zone of country.
func NewSubscriptionView(sub *model.Subscription, country string, now time.Time) *SubscriptionView {
	sub.SortSessions()
	v := &SubscriptionView{
		Subscription:      sub,
		Sessions:          make([]SessionView, 0, len(sub.Sessions)),
		SessionsCompleted: sub.SessionsCompleted(),
		SessionsRemaining: sub.SessionsRemaining(),
		DisplayCountry:    country,
		DisplayTimezone:   booking.TimezoneFor(country),
	}
	for _, ss := range sub.Sessions {
		v.Sessions = append(v.Sessions, SessionView{Session: ss, Display: booking.FromUTC(ss.StartsAtUTC, country)})
	}
	if next := sub.NextSession(now); next != nil {
		v.NextSession = &SessionView{Session: next, Display: booking.FromUTC(next.StartsAtUTC, country)}
	}
	return v
}

func (s *subscriptionUC) Booked(ctx context.Context, displayCountry string) ([]BookedSlot, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.Booked")()

	sessions, err := s.subs.BookedSessions(ctx, repository.NoTX, s.now().UTC())
	if err != nil {
		return nil, err
	}
	out := make([]BookedSlot, 0, len(sessions))
	for _, ss := range sessions {
		out = append(out, BookedSlot{
			StartsAtUTC: ss.StartsAtUTC,
			Status:      ss.Status,
			LocalTime:   booking.FromUTC(ss.StartsAtUTC, displayCountry),
		})
	}
	return out, nil
}

func (s *subscriptionUC) Available(ctx context.Context, startDate, endDate, displayCountry string) ([]booking.OpenSlot, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.Available")()

	now := s.now().UTC()
	sessions, err := s.subs.BookedSessions(ctx, repository.NoTX, now.Add(-s.settings.Buffer))
	if err != nil {
		return nil, err
	}
	booked := make([]time.Time, 0, len(sessions))
	for _, ss := range sessions {
		if ss.Holds() {
			booked = append(booked, ss.StartsAtUTC)
		}
	}
	return booking.AvailableSlots(startDate, endDate, displayCountry, booked, s.settings.Buffer, s.settings.Hours, now)
}

func (s *subscriptionUC) List(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, int, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.List")()
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.ErrInvalidArgument
	}
	f.Offset, f.Limit = clampPage(f.Offset, f.Limit)
	return s.subs.List(ctx, repository.NoTX, f)
}

func (s *subscriptionUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.Get")()
	return s.subs.FindByID(ctx, repository.NoTX, id)
}

func (s *subscriptionUC) UpdateStatus(ctx context.Context, id string, in StatusUpdate) (*model.Subscription, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.UpdateStatus")()

	var sub *model.Subscription
	err := s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		sub, err = s.subs.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if in.Status != nil {
			if !in.Status.Valid() {
				return domain.ErrInvalidArgument
			}
			if !sub.Status.Live() && in.Status.Live() {
				if err := s.checkRevival(ctx, tx, sub); err != nil {
					return err
				}
			}
			sub.Status = *in.Status
		}
		if in.PaymentStatus != nil {
			if err := sub.SetPaymentStatus(*in.PaymentStatus, now); err != nil {
				return err
			}
		}
		if in.PaymentReference != nil {
			sub.PaymentReference = strings.TrimSpace(*in.PaymentReference)
		}
		if in.Notes != nil {
			sub.Notes = strings.TrimSpace(*in.Notes)
		}
		sub.UpdatedAt = now
		return s.subs.Update(ctx, tx, sub)
	})
	if errors.Is(err, domain.ErrSlotTaken) {
		return nil, booking.Reject(booking.CodeSlotConflict, booking.BatchIndex, "status",
			"the subscription's sessions overlap sessions booked since it was cancelled")
	}
	if err != nil {
		var ve *booking.ValidationError
		if errors.As(err, &ve) {
			return nil, s.rejected(err)
		}
		return nil, err
	}
	s.log.Info().Str("subscription_id", sub.ID).Str("status", string(sub.Status)).
		Str("payment_status", string(sub.PaymentStatus)).Msg("subscription updated")
	return sub, nil
}

// checkRevival runs the buffer and weekly cap against the user's other held
// slots before a cancelled subscription takes its own back.
func (s *subscriptionUC) checkRevival(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	held, err := s.subs.HeldInstantsByUser(ctx, tx, sub.UserID)
	if err != nil {
		return err
	}
	var own []time.Time
	for _, ss := range sub.Sessions {
		if ss.Holds() {
			own = append(own, ss.StartsAtUTC)
		}
	}
	return booking.ValidateHeld(own, sub.UserCountry, sub.SessionsPerWeek, s.settings.Buffer, held)
}

func (s *subscriptionUC) UpdateSession(ctx context.Context, subID, sessionID string, status model.SessionStatus, notes *string) (*model.Subscription, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.UpdateSession")()

	sub, err := s.subs.FindByID(ctx, repository.NoTX, subID)
	if err != nil {
		return nil, err
	}
	ss, err := sub.FindSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := ss.Transition(status); err != nil {
		return nil, err
	}
	if notes != nil {
		ss.Notes = strings.TrimSpace(*notes)
	}
	ss.UpdatedAt = s.now().UTC()
	if err := s.subs.UpdateSession(ctx, repository.NoTX, ss); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(s.log, "SubscriptionUC.Delete")()
	if err := s.subs.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	s.log.Info().Str("subscription_id", id).Msg("subscription deleted")
	return nil
}

func (s *subscriptionUC) Stats(ctx context.Context) (*model.SubscriptionStats, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.Stats")()
	return s.subs.Stats(ctx, repository.NoTX, statsMonths)
}

// ExpireEnded is the entry point of the scheduled sweep.
func (s *subscriptionUC) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.ExpireEnded")()
	return s.subs.ExpireEnded(ctx, repository.NoTX, now)
}
