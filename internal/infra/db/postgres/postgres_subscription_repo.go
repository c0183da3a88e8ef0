package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, user_id, user_email, user_country, plan_id, plan_name, plan_price, plan_currency,
       start_date, end_date, total_sessions, sessions_per_week, status, payment_status,
       payment_confirmed_at, payment_reference, notes, created_at, updated_at`

const sessionColumns = `id, subscription_id, user_id, starts_at_utc, local_date, local_time, country,
       timezone, status, notes, created_at, updated_at`

// Create writes the subscription and its slots atomically. Without a caller
// transaction it opens one of its own.
func (r *subscriptionRepo) Create(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if tx == nil {
		return NewTxManager(r.pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			return r.Create(ctx, tx, sub)
		})
	}

	const q = `
INSERT INTO subscriptions (` + subColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19);`
	_, err := execSQL(ctx, r.pool, tx, q,
		sub.ID, sub.UserID, sub.UserEmail, sub.UserCountry, sub.PlanID, sub.PlanName, sub.PlanPrice,
		string(sub.PlanCurrency), sub.StartDate, sub.EndDate, sub.TotalSessions, sub.SessionsPerWeek,
		string(sub.Status), string(sub.PaymentStatus), sub.PaymentConfirmedAt, sub.PaymentReference,
		sub.Notes, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	const qs = `
INSERT INTO session_slots (` + sessionColumns + `, sub_live)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	live := sub.Status.Live()
	for _, s := range sub.Sessions {
		_, err := execSQL(ctx, r.pool, tx, qs,
			s.ID, sub.ID, sub.UserID, s.StartsAtUTC, s.LocalDate, s.LocalTime, s.Country, s.Timezone,
			string(s.Status), s.Notes, s.CreatedAt, s.UpdatedAt, live)
		if err != nil {
			if mapped := mapPgError(err); mapped != err {
				return mapped
			}
			return fmt.Errorf("insert session slot: %w", err)
		}
	}
	return nil
}

func (r *subscriptionRepo) Update(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	const q = `
UPDATE subscriptions
   SET status=$2, payment_status=$3, payment_confirmed_at=$4, payment_reference=$5, notes=$6, updated_at=$7
 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, sub.ID, string(sub.Status), string(sub.PaymentStatus),
		sub.PaymentConfirmedAt, sub.PaymentReference, sub.Notes, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	// reviving a subscription may collide with slots booked since
	_, err = execSQL(ctx, r.pool, tx, `UPDATE session_slots SET sub_live=$2 WHERE subscription_id=$1;`,
		sub.ID, sub.Status.Live())
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update slot liveness: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) UpdateSession(ctx context.Context, tx repository.Tx, s *model.Session) error {
	ct, err := execSQL(ctx, r.pool, tx,
		`UPDATE session_slots SET status=$2, notes=$3, updated_at=$4 WHERE id=$1;`,
		s.ID, string(s.Status), s.Notes, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session slot: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	var currency, status, payment string
	if err := row.Scan(&s.ID, &s.UserID, &s.UserEmail, &s.UserCountry, &s.PlanID, &s.PlanName,
		&s.PlanPrice, &currency, &s.StartDate, &s.EndDate, &s.TotalSessions, &s.SessionsPerWeek,
		&status, &payment, &s.PaymentConfirmedAt, &s.PaymentReference, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.PlanCurrency = model.Currency(currency)
	s.Status = model.SubscriptionStatus(status)
	s.PaymentStatus = model.PaymentStatus(payment)
	s.Sessions = []*model.Session{}
	return &s, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	var status string
	if err := row.Scan(&s.ID, &s.SubscriptionID, &s.UserID, &s.StartsAtUTC, &s.LocalDate, &s.LocalTime,
		&s.Country, &s.Timezone, &status, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.SessionStatus(status)
	s.StartsAtUTC = s.StartsAtUTC.UTC()
	return &s, nil
}

func (r *subscriptionRepo) querySubs(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()
	out := []*model.Subscription{}
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachSessions(ctx, tx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachSessions loads the slots of all subs in one query.
func (r *subscriptionRepo) attachSessions(ctx context.Context, tx repository.Tx, subs []*model.Subscription) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]string, len(subs))
	byID := make(map[string]*model.Subscription, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
		byID[s.ID] = s
	}
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+sessionColumns+` FROM session_slots WHERE subscription_id = ANY($1::uuid[]) ORDER BY starts_at_utc;`, ids)
	if err != nil {
		return fmt.Errorf("query session slots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		ss, err := scanSession(rows)
		if err != nil {
			return err
		}
		if sub, ok := byID[ss.SubscriptionID]; ok {
			sub.Sessions = append(sub.Sessions, ss)
		}
	}
	return rows.Err()
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	subs, err := r.querySubs(ctx, tx, `SELECT `+subColumns+` FROM subscriptions WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, domain.ErrNotFound
	}
	return subs[0], nil
}

func (r *subscriptionRepo) FindLiveByUserAndPlan(ctx context.Context, tx repository.Tx, userID, planID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND plan_id=$2 AND status IN ('confirmed', 'active')
 ORDER BY created_at DESC
 LIMIT 1;`
	subs, err := r.querySubs(ctx, tx, q, userID, planID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, domain.ErrNotFound
	}
	return subs[0], nil
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	return r.querySubs(ctx, tx,
		`SELECT `+subColumns+` FROM subscriptions WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
}

func (r *subscriptionRepo) List(ctx context.Context, tx repository.Tx, f repository.SubscriptionFilter) ([]*model.Subscription, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	const where = `
 WHERE ($1 = '' OR status = $1)
   AND ($2 = '' OR user_email ILIKE '%' || $2 || '%')
   AND ($3 = '' OR plan_name ILIKE '%' || $3 || '%')`

	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM subscriptions`+where+`;`,
		string(f.Status), f.UserEmail, f.PlanName)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	subs, err := r.querySubs(ctx, tx,
		`SELECT `+subColumns+` FROM subscriptions`+where+` ORDER BY created_at DESC OFFSET $4 LIMIT $5;`,
		string(f.Status), f.UserEmail, f.PlanName, f.Offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	ct, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscriptions WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) HeldInstantsByUser(ctx context.Context, tx repository.Tx, userID string) ([]time.Time, error) {
	const q = `
SELECT starts_at_utc
  FROM session_slots
 WHERE user_id=$1 AND sub_live AND status IN ('scheduled', 'completed')
 ORDER BY starts_at_utc;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query held instants: %w", err)
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) BookedSessions(ctx context.Context, tx repository.Tx, from time.Time) ([]*model.Session, error) {
	q := `
SELECT ` + sessionColumns + `
  FROM session_slots
 WHERE sub_live AND status <> 'cancelled' AND starts_at_utc >= $1
 ORDER BY starts_at_utc;`
	rows, err := queryRows(ctx, r.pool, tx, q, from)
	if err != nil {
		return nil, fmt.Errorf("query booked sessions: %w", err)
	}
	defer rows.Close()
	out := []*model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExpireEnded flips live subscriptions past their end date and releases their slots.
func (r *subscriptionRepo) ExpireEnded(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	if tx == nil {
		var n int
		err := NewTxManager(r.pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			var err error
			n, err = r.ExpireEnded(ctx, tx, now)
			return err
		})
		return n, err
	}
	ct, err := execSQL(ctx, r.pool, tx, `
UPDATE subscriptions
   SET status='expired', updated_at=$1
 WHERE status IN ('confirmed', 'active') AND end_date < $1;`, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	n := int(ct.RowsAffected())
	if n == 0 {
		return 0, nil
	}
	_, err = execSQL(ctx, r.pool, tx, `
UPDATE session_slots ss
   SET sub_live=FALSE
  FROM subscriptions s
 WHERE ss.subscription_id = s.id AND ss.sub_live AND s.status NOT IN ('confirmed', 'active');`)
	if err != nil {
		return 0, fmt.Errorf("release expired slots: %w", err)
	}
	return n, nil
}

func (r *subscriptionRepo) Stats(ctx context.Context, tx repository.Tx, months int) (*model.SubscriptionStats, error) {
	if months <= 0 {
		months = 12
	}
	st := &model.SubscriptionStats{
		ByStatus: []model.StatusCount{},
		ByPay:    []model.PaymentSummary{},
		ByPlan:   []model.PlanSummary{},
		Monthly:  []model.MonthlySummary{},
	}

	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM subscriptions;`)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}

	err = r.eachRow(ctx, tx, `SELECT status, COUNT(*) FROM subscriptions GROUP BY status ORDER BY status;`,
		func(rows pgx.Rows) error {
			var c model.StatusCount
			var s string
			if err := rows.Scan(&s, &c.Count); err != nil {
				return err
			}
			c.Status = model.SubscriptionStatus(s)
			st.ByStatus = append(st.ByStatus, c)
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = r.eachRow(ctx, tx, `
SELECT payment_status, COUNT(*), COALESCE(SUM(plan_price), 0)
  FROM subscriptions GROUP BY payment_status ORDER BY payment_status;`,
		func(rows pgx.Rows) error {
			var p model.PaymentSummary
			var s string
			if err := rows.Scan(&s, &p.Count, &p.Revenue); err != nil {
				return err
			}
			p.Status = model.PaymentStatus(s)
			st.ByPay = append(st.ByPay, p)
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = r.eachRow(ctx, tx, `
SELECT plan_name, COUNT(*), COALESCE(SUM(plan_price), 0)
  FROM subscriptions GROUP BY plan_name ORDER BY COUNT(*) DESC, plan_name;`,
		func(rows pgx.Rows) error {
			var p model.PlanSummary
			if err := rows.Scan(&p.PlanName, &p.Count, &p.Revenue); err != nil {
				return err
			}
			st.ByPlan = append(st.ByPlan, p)
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = r.eachRow(ctx, tx, `
SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
       COUNT(*), COALESCE(SUM(plan_price), 0)
  FROM subscriptions
 GROUP BY month
 ORDER BY month DESC
 LIMIT $1;`,
		func(rows pgx.Rows) error {
			var m model.MonthlySummary
			if err := rows.Scan(&m.Month, &m.Count, &m.Revenue); err != nil {
				return err
			}
			st.Monthly = append(st.Monthly, m)
			return nil
		}, months)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *subscriptionRepo) eachRow(ctx context.Context, tx repository.Tx, q string, fn func(pgx.Rows) error, args ...interface{}) error {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
