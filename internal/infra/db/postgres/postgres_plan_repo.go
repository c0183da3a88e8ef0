package postgres

import (
	"context"
	"errors"
	"fmt"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure interface compliance
var _ repository.SubscriptionPlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, name, description, sessions_per_month, sessions_per_week, price, currency,
       duration_days, features, is_active, created_by, created_at, updated_at`

var planSorts = map[string]string{
	"":           "created_at DESC",
	"-createdAt": "created_at DESC",
	"createdAt":  "created_at ASC",
	"price":      "price ASC",
	"-price":     "price DESC",
	"name":       "name ASC",
	"-name":      "name DESC",
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	const sql = `
INSERT INTO subscription_plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE
  SET name               = EXCLUDED.name,
      description        = EXCLUDED.description,
      sessions_per_month = EXCLUDED.sessions_per_month,
      sessions_per_week  = EXCLUDED.sessions_per_week,
      price              = EXCLUDED.price,
      currency           = EXCLUDED.currency,
      duration_days      = EXCLUDED.duration_days,
      features           = EXCLUDED.features,
      is_active          = EXCLUDED.is_active,
      updated_at         = EXCLUDED.updated_at;
`
	features := plan.Features
	if features == nil {
		features = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, sql,
		plan.ID, plan.Name, plan.Description, plan.SessionsPerMonth, plan.SessionsPerWeek,
		plan.Price, string(plan.Currency), plan.DurationDays, features, plan.IsActive,
		plan.CreatedBy, plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		if mapped := mapPgError(err); errors.Is(mapped, domain.ErrAlreadyExists) {
			return mapped
		}
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.SubscriptionPlan, error) {
	var p model.SubscriptionPlan
	var currency string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SessionsPerMonth, &p.SessionsPerWeek,
		&p.Price, &currency, &p.DurationDays, &p.Features, &p.IsActive, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Currency = model.Currency(currency)
	if p.Features == nil {
		p.Features = []string{}
	}
	return &p, nil
}

func (r *PostgresPlanRepo) findOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.SubscriptionPlan, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	return r.findOne(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1;`, id)
}

func (r *PostgresPlanRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	return r.findOne(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE LOWER(name) = LOWER($1);`, name)
}

func (r *PostgresPlanRepo) List(ctx context.Context, tx repository.Tx, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error) {
	order, ok := planSorts[f.Sort]
	if !ok {
		return nil, 0, domain.ErrInvalidArgument
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var total int
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT COUNT(*) FROM subscription_plans WHERE ($1::boolean IS NULL OR is_active = $1);`, f.IsActive)
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}

	sql := `SELECT ` + planColumns + ` FROM subscription_plans
 WHERE ($1::boolean IS NULL OR is_active = $1)
 ORDER BY ` + order + `
 OFFSET $2 LIMIT $3;`
	plans, err := r.list(ctx, tx, sql, f.IsActive, f.Offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	return r.list(ctx, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE is_active ORDER BY price ASC, name ASC;`)
}

func (r *PostgresPlanRepo) list(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) ([]*model.SubscriptionPlan, error) {
	rows, err := queryRows(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	out := []*model.SubscriptionPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete refuses while the plan still has confirmed or active subscriptions.
func (r *PostgresPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const countSQL = `
SELECT COUNT(1) FROM subscriptions s
WHERE s.plan_id = $1 AND s.status IN ('confirmed', 'active');
`
	row, err := pickRow(ctx, r.pool, tx, countSQL, id)
	if err != nil {
		return err
	}
	var cnt int
	if err := row.Scan(&cnt); err != nil {
		return fmt.Errorf("count live subscriptions: %w", err)
	}
	if cnt > 0 {
		return domain.ErrPlanInUse
	}

	ct, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscription_plans WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
