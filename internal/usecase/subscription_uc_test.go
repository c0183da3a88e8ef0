//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/adapter"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/usecase"
)

var bookingNow = time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)

type subFixture struct {
	subs   *MockSubscriptionRepo
	plans  *MockPlanRepo
	users  *MockUserRepo
	tm     *MockTxManager
	mailer *MockMailer
	queue  *MockQueue
	uc     usecase.SubscriptionUseCase
	user   *model.User
	gold   *model.SubscriptionPlan
}

func newSubFixture(t *testing.T) *subFixture {
	t.Helper()
	ctx := context.Background()
	f := &subFixture{
		subs:   NewMockSubscriptionRepo(),
		plans:  NewMockPlanRepo(),
		users:  NewMockUserRepo(),
		tm:     NewMockTxManager(),
		mailer: &MockMailer{},
		queue:  &MockQueue{},
	}
	notifier := usecase.NewNotificationUseCase(f.mailer, f.queue, newTestTranslator(), "coach@example.com", 30*time.Minute, newTestLogger())
	f.uc = usecase.NewSubscriptionUseCase(f.subs, f.plans, f.users, f.tm, notifier,
		usecase.BookingSettings{Buffer: booking.DefaultBuffer}, newTestLogger()).
		WithClock(func() time.Time { return bookingNow })

	u, err := model.NewUser("jane@example.com", "Jane", "Doe", model.GenderFemale, "+201000000000", "Egypt", "Africa/Cairo")
	require.NoError(t, err)
	require.NoError(t, f.users.Save(ctx, nil, u))
	f.user = u
	f.gold = f.addPlan(t, "Gold", 4, 2)
	return f
}

func (f *subFixture) addPlan(t *testing.T, name string, perMonth, perWeek int) *model.SubscriptionPlan {
	t.Helper()
	p, err := model.NewSubscriptionPlan(name, "", perMonth, perWeek, 400, model.CurrencyEGP, 30, nil, "admin-1")
	require.NoError(t, err)
	require.NoError(t, f.plans.Save(context.Background(), nil, p))
	return p
}

func monthlyBatch() []booking.SessionRequest {
	return []booking.SessionRequest{
		{Date: "2025-02-03", Time: "10:00", Notes: "intro"},
		{Date: "2025-02-05", Time: "10:00"},
		{Date: "2025-02-10", Time: "10:00"},
		{Date: "2025-02-12", Time: "10:00"},
	}
}

func requireViolation(t *testing.T, err error, code booking.Code) *booking.ValidationError {
	t.Helper()
	var ve *booking.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(code), "expected %s in %v", code, ve.Violations)
	assert.ErrorIs(t, err, domain.ErrBookingRejected)
	return ve
}

func TestSubscriptionUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should book a full monthly batch and send the confirmation", func(t *testing.T) {
		f := newSubFixture(t)
		sub, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch(),
		})
		require.NoError(t, err)

		require.Len(t, sub.Sessions, 4)
		assert.Equal(t, model.SubscriptionStatusConfirmed, sub.Status)
		assert.Equal(t, model.PaymentStatusPending, sub.PaymentStatus)
		assert.Equal(t, "Gold", sub.PlanName)
		assert.Equal(t, time.Date(2025, 1, 31, 22, 0, 0, 0, time.UTC), sub.StartDate)
		assert.Equal(t, time.Date(2025, 3, 2, 22, 0, 0, 0, time.UTC), sub.EndDate)
		for i, s := range sub.Sessions {
			assert.Equal(t, model.SessionStatusScheduled, s.Status)
			assert.Equal(t, "10:00", s.LocalTime)
			assert.Equal(t, "Africa/Cairo", s.Timezone)
			assert.Equal(t, 8, s.StartsAtUTC.Hour())
			if i > 0 {
				assert.True(t, sub.Sessions[i-1].StartsAtUTC.Before(s.StartsAtUTC))
			}
		}
		assert.Equal(t, "intro", sub.Sessions[0].Notes)
		assert.Equal(t, 1, f.tm.calls)

		stored, err := f.subs.FindByID(ctx, nil, sub.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Sessions, 4)

		mail := f.mailer.Last()
		require.NotNil(t, mail)
		assert.Equal(t, "Subscription Confirmed - Gold", mail.Subject)
		assert.Equal(t, "jane@example.com", mail.To)
		require.Len(t, mail.Attachments, 1)
		assert.Equal(t, booking.CalendarFileName, mail.Attachments[0].Filename)
		assert.Equal(t, 4, strings.Count(string(mail.Attachments[0].Content), "BEGIN:VEVENT"))
		assert.Contains(t, mail.Text, "Monday, 03 February 2025 at 10:00")
	})

	t.Run("should reject a fifth session before anything is stored", func(t *testing.T) {
		f := newSubFixture(t)
		reqs := append(monthlyBatch(), booking.SessionRequest{Date: "2025-02-17", Time: "10:00"})
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: reqs})
		ve := requireViolation(t, err, booking.CodePlanMismatch)
		assert.Len(t, ve.Violations, 1)
		assert.Equal(t, 0, f.tm.calls)
		assert.Nil(t, f.mailer.Last())
	})

	t.Run("should reject two sessions inside the buffer", func(t *testing.T) {
		f := newSubFixture(t)
		pair := f.addPlan(t, "Pair", 2, 2)
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: pair.ID, StartDate: "2025-02-01",
			Sessions: []booking.SessionRequest{{Date: "2025-02-03", Time: "10:00"}, {Date: "2025-02-03", Time: "10:10"}},
		})
		requireViolation(t, err, booking.CodeDuplicateInBatch)
		assert.Equal(t, 0, f.tm.calls)
	})

	t.Run("should book a lower weekly cap next to a busier live subscription", func(t *testing.T) {
		f := newSubFixture(t)
		intense := f.addPlan(t, "Intense", 4, 4)
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: intense.ID, StartDate: "2025-01-25",
			Sessions: []booking.SessionRequest{
				{Date: "2025-01-27", Time: "10:00"},
				{Date: "2025-01-28", Time: "10:00"},
				{Date: "2025-01-29", Time: "10:00"},
				{Date: "2025-01-30", Time: "10:00"},
			},
		})
		require.NoError(t, err)

		sub, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch(),
		})
		require.NoError(t, err)
		assert.Len(t, sub.Sessions, 4)
	})

	t.Run("should still cap a week shared with a live subscription", func(t *testing.T) {
		f := newSubFixture(t)
		single := f.addPlan(t, "Single", 1, 1)
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: single.ID, StartDate: "2025-02-01",
			Sessions: []booking.SessionRequest{{Date: "2025-02-04", Time: "10:00"}},
		})
		require.NoError(t, err)

		_, err = f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch(),
		})
		ve := requireViolation(t, err, booking.CodeWeeklyCapExceeded)
		assert.Len(t, ve.Violations, 1)
	})

	t.Run("should reject a bad start date", func(t *testing.T) {
		f := newSubFixture(t)
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "01/02/2025", Sessions: monthlyBatch()})
		ve := requireViolation(t, err, booking.CodeInvalidInput)
		assert.Equal(t, "startDate", ve.Violations[0].Field)
	})

	t.Run("should refuse a second live subscription to the same plan", func(t *testing.T) {
		f := newSubFixture(t)
		in := usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()}
		_, err := f.uc.Create(ctx, f.user.ID, in)
		require.NoError(t, err)
		_, err = f.uc.Create(ctx, f.user.ID, in)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("should detect clashes with the user's other subscriptions", func(t *testing.T) {
		f := newSubFixture(t)
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		require.NoError(t, err)

		single := f.addPlan(t, "Single", 1, 3)
		_, err = f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: single.ID, StartDate: "2025-02-01",
			Sessions: []booking.SessionRequest{{Date: "2025-02-03", Time: "10:15"}},
		})
		requireViolation(t, err, booking.CodeSlotConflict)
	})

	t.Run("should map a concurrent unique violation to a slot conflict", func(t *testing.T) {
		f := newSubFixture(t)
		f.subs.CreateFunc = func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
			return domain.ErrSlotTaken
		}
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		ve := requireViolation(t, err, booking.CodeSlotConflict)
		assert.True(t, ve.OnlyConflicts())
		assert.Nil(t, f.mailer.Last())
	})

	t.Run("should surface storage failures unchanged", func(t *testing.T) {
		f := newSubFixture(t)
		boom := errors.New("connection reset")
		f.subs.CreateFunc = func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error { return boom }
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("should keep the booking when the confirmation mail fails", func(t *testing.T) {
		f := newSubFixture(t)
		f.mailer.SendFunc = func(ctx context.Context, m *adapter.Mail) error { return errors.New("smtp down") }
		sub, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		require.NoError(t, err)
		assert.Len(t, sub.Sessions, 4)
		assert.Nil(t, f.mailer.Last())
	})

	t.Run("should require an active plan and a user country", func(t *testing.T) {
		f := newSubFixture(t)
		inactive := f.addPlan(t, "Paused", 4, 2)
		inactive.IsActive = false
		require.NoError(t, f.plans.Save(ctx, nil, inactive))
		_, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: inactive.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		assert.ErrorIs(t, err, domain.ErrPlanInactive)

		f.user.Country = ""
		require.NoError(t, f.users.Save(ctx, nil, f.user))
		_, err = f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		assert.ErrorIs(t, err, domain.ErrCountryRequired)

		_, err = f.uc.Create(ctx, "missing", usecase.CreateSubscriptionInput{PlanID: f.gold.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSubscriptionUseCase_Views(t *testing.T) {
	ctx := context.Background()
	f := newSubFixture(t)
	sub, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
	require.NoError(t, err)

	t.Run("should render my sessions in the display country", func(t *testing.T) {
		views, err := f.uc.ListMine(ctx, f.user.ID, "Japan")
		require.NoError(t, err)
		require.Len(t, views, 1)
		v := views[0]
		assert.Equal(t, sub.ID, v.ID)
		assert.Equal(t, "Asia/Tokyo", v.DisplayTimezone)
		require.Len(t, v.Sessions, 4)
		assert.Equal(t, "17:00", v.Sessions[0].Display.Time)
		assert.Equal(t, "10:00", v.Sessions[0].LocalTime)
		assert.Equal(t, 4, v.SessionsRemaining)
		assert.Equal(t, 0, v.SessionsCompleted)
		require.NotNil(t, v.NextSession)
		assert.Equal(t, v.Sessions[0].ID, v.NextSession.ID)
	})

	t.Run("should default the display country to the booking country", func(t *testing.T) {
		views, err := f.uc.ListMine(ctx, f.user.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "Africa/Cairo", views[0].DisplayTimezone)
		assert.Equal(t, "10:00", views[0].Sessions[0].Display.Time)
	})

	t.Run("should list booked slots without owners", func(t *testing.T) {
		booked, err := f.uc.Booked(ctx, "Egypt")
		require.NoError(t, err)
		require.Len(t, booked, 4)
		assert.Equal(t, "2025-02-03", booked[0].Date)
		assert.Equal(t, "10:00", booked[0].Time)
	})

	t.Run("should leave out taken grid positions", func(t *testing.T) {
		slots, err := f.uc.Available(ctx, "2025-02-03", "", "Egypt")
		require.NoError(t, err)
		assert.Len(t, slots, 23)
		for _, s := range slots {
			assert.NotEqual(t, "10:00", s.Time)
		}
		_, err = f.uc.Available(ctx, "2025-02-05", "2025-02-01", "Egypt")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestSubscriptionUseCase_Admin(t *testing.T) {
	ctx := context.Background()

	book := func(t *testing.T, f *subFixture) *model.Subscription {
		sub, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: f.gold.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		require.NoError(t, err)
		return sub
	}

	t.Run("should stamp the payment confirmation when paid", func(t *testing.T) {
		f := newSubFixture(t)
		sub := book(t, f)
		paid := model.PaymentStatusPaid
		ref := " INV-1 "
		got, err := f.uc.UpdateStatus(ctx, sub.ID, usecase.StatusUpdate{PaymentStatus: &paid, PaymentReference: &ref})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
		require.NotNil(t, got.PaymentConfirmedAt)
		assert.Equal(t, bookingNow, *got.PaymentConfirmedAt)
		assert.Equal(t, "INV-1", got.PaymentReference)
	})

	t.Run("should reject unknown statuses", func(t *testing.T) {
		f := newSubFixture(t)
		sub := book(t, f)
		bad := model.SubscriptionStatus("paused")
		_, err := f.uc.UpdateStatus(ctx, sub.ID, usecase.StatusUpdate{Status: &bad})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, _, err = f.uc.List(ctx, repository.SubscriptionFilter{Status: bad})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("should free slots on cancel and refuse to revive over new bookings", func(t *testing.T) {
		f := newSubFixture(t)
		sub := book(t, f)
		cancelled := model.SubscriptionStatusCancelled
		_, err := f.uc.UpdateStatus(ctx, sub.ID, usecase.StatusUpdate{Status: &cancelled})
		require.NoError(t, err)

		single := f.addPlan(t, "Single", 1, 1)
		_, err = f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: single.ID, StartDate: "2025-02-01",
			Sessions: []booking.SessionRequest{{Date: "2025-02-03", Time: "10:00"}},
		})
		require.NoError(t, err)

		confirmed := model.SubscriptionStatusConfirmed
		_, err = f.uc.UpdateStatus(ctx, sub.ID, usecase.StatusUpdate{Status: &confirmed})
		requireViolation(t, err, booking.CodeSlotConflict)
	})

	revive := func(t *testing.T, f *subFixture, plan *model.SubscriptionPlan, other booking.SessionRequest) (*model.Subscription, error) {
		t.Helper()
		sub, err := f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{PlanID: plan.ID, StartDate: "2025-02-01", Sessions: monthlyBatch()})
		require.NoError(t, err)
		cancelled := model.SubscriptionStatusCancelled
		_, err = f.uc.UpdateStatus(ctx, sub.ID, usecase.StatusUpdate{Status: &cancelled})
		require.NoError(t, err)

		single := f.addPlan(t, "Single", 1, 1)
		_, err = f.uc.Create(ctx, f.user.ID, usecase.CreateSubscriptionInput{
			PlanID: single.ID, StartDate: "2025-02-01", Sessions: []booking.SessionRequest{other},
		})
		require.NoError(t, err)

		active := model.SubscriptionStatusActive
		return f.uc.UpdateStatus(ctx, sub.ID, usecase.StatusUpdate{Status: &active})
	}

	t.Run("should refuse to revive within the buffer of a newer booking", func(t *testing.T) {
		f := newSubFixture(t)
		intense := f.addPlan(t, "Intense", 4, 4)
		_, err := revive(t, f, intense, booking.SessionRequest{Date: "2025-02-03", Time: "10:15"})
		ve := requireViolation(t, err, booking.CodeSlotConflict)
		assert.False(t, ve.Has(booking.CodeWeeklyCapExceeded))
		assert.Equal(t, 0, ve.Violations[0].Index)
		assert.Contains(t, ve.Violations[0].Message, "2025-02-03 10:00")
	})

	t.Run("should refuse to revive past the weekly cap", func(t *testing.T) {
		f := newSubFixture(t)
		_, err := revive(t, f, f.gold, booking.SessionRequest{Date: "2025-02-04", Time: "10:00"})
		ve := requireViolation(t, err, booking.CodeWeeklyCapExceeded)
		assert.False(t, ve.Has(booking.CodeSlotConflict))
		assert.Contains(t, ve.Error(), "2025-02-03")
	})

	t.Run("should revive when nothing clashes", func(t *testing.T) {
		f := newSubFixture(t)
		sub, err := revive(t, f, f.gold, booking.SessionRequest{Date: "2025-02-20", Time: "10:00"})
		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
		got, err := f.subs.FindByID(ctx, nil, sub.ID)
		require.NoError(t, err)
		assert.True(t, got.Status.Live())
	})

	t.Run("should move sessions out of scheduled only", func(t *testing.T) {
		f := newSubFixture(t)
		sub := book(t, f)
		sid := sub.Sessions[0].ID
		notes := "went well"
		got, err := f.uc.UpdateSession(ctx, sub.ID, sid, model.SessionStatusCompleted, &notes)
		require.NoError(t, err)
		ss, _ := got.FindSession(sid)
		assert.Equal(t, model.SessionStatusCompleted, ss.Status)
		assert.Equal(t, "went well", ss.Notes)

		stored, _ := f.subs.FindByID(ctx, nil, sub.ID)
		assert.Equal(t, 1, stored.SessionsCompleted())
		assert.Equal(t, 3, stored.SessionsRemaining())

		_, err = f.uc.UpdateSession(ctx, sub.ID, sid, model.SessionStatusCancelled, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		_, err = f.uc.UpdateSession(ctx, sub.ID, "nope", model.SessionStatusMissed, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.uc.UpdateSession(ctx, sub.ID, sub.Sessions[1].ID, "done", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("should list, get, delete and summarise", func(t *testing.T) {
		f := newSubFixture(t)
		sub := book(t, f)
		list, total, err := f.uc.List(ctx, repository.SubscriptionFilter{UserEmail: "JANE"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, list, 1)

		var months int
		f.subs.StatsFunc = func(ctx context.Context, tx repository.Tx, m int) (*model.SubscriptionStats, error) {
			months = m
			return &model.SubscriptionStats{Total: 1}, nil
		}
		stats, err := f.uc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 12, months)

		require.NoError(t, f.uc.Delete(ctx, sub.ID))
		_, err = f.uc.Get(ctx, sub.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("should expire subscriptions past their end date", func(t *testing.T) {
		f := newSubFixture(t)
		sub := book(t, f)
		n, err := f.uc.ExpireEnded(ctx, sub.EndDate.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		n, err = f.uc.ExpireEnded(ctx, sub.EndDate.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		got, _ := f.uc.Get(ctx, sub.ID)
		assert.Equal(t, model.SubscriptionStatusExpired, got.Status)
	})
}
