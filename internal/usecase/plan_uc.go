package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanInput carries the fields of a new plan.
type PlanInput struct {
	Name             string
	Description      string
	SessionsPerMonth int
	SessionsPerWeek  int
	Price            float64
	Currency         model.Currency
	DurationDays     int
	Features         []string
}

// PlanUpdate is a partial update; nil fields are left unchanged.
type PlanUpdate struct {
	Name             *string
	Description      *string
	SessionsPerMonth *int
	SessionsPerWeek  *int
	Price            *float64
	Currency         *model.Currency
	DurationDays     *int
	Features         []string
	IsActive         *bool
}

// PlanUseCase manages subscription plans.
type PlanUseCase interface {
	Create(ctx context.Context, in PlanInput, adminID string) (*model.SubscriptionPlan, error)
	Get(ctx context.Context, id string) (*model.SubscriptionPlan, error)
	List(ctx context.Context, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error)
	ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Update(ctx context.Context, id string, in PlanUpdate) (*model.SubscriptionPlan, error)
	Delete(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, id string) (*model.SubscriptionPlan, error)
}

type planUC struct {
	plans repository.SubscriptionPlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.SubscriptionPlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{plans: plans, log: logger}
}

func (p *planUC) Create(ctx context.Context, in PlanInput, adminID string) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.Create")()

	if err := p.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}
	plan, err := model.NewSubscriptionPlan(in.Name, in.Description, in.SessionsPerMonth, in.SessionsPerWeek,
		in.Price, in.Currency, in.DurationDays, in.Features, adminID)
	if err != nil {
		return nil, err
	}
	if err := p.plans.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	p.log.Info().Str("plan_id", plan.ID).Str("name", plan.Name).Msg("plan created")
	return plan, nil
}

func (p *planUC) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.Get")()
	return p.plans.FindByID(ctx, repository.NoTX, id)
}

func (p *planUC) List(ctx context.Context, f repository.PlanFilter) ([]*model.SubscriptionPlan, int, error) {
	defer logging.TraceDuration(p.log, "PlanUC.List")()
	f.Offset, f.Limit = clampPage(f.Offset, f.Limit)
	return p.plans.List(ctx, repository.NoTX, f)
}

func (p *planUC) ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.ListActive")()
	return p.plans.ListActive(ctx, repository.NoTX)
}

func (p *planUC) Update(ctx context.Context, id string, in PlanUpdate) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.Update")()

	plan, err := p.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && !strings.EqualFold(strings.TrimSpace(*in.Name), plan.Name) {
		if err := p.ensureNameFree(ctx, *in.Name, plan.ID); err != nil {
			return nil, err
		}
		plan.Name = *in.Name
	}
	if in.Description != nil {
		plan.Description = *in.Description
	}
	if in.SessionsPerMonth != nil {
		plan.SessionsPerMonth = *in.SessionsPerMonth
	}
	if in.SessionsPerWeek != nil {
		plan.SessionsPerWeek = *in.SessionsPerWeek
	}
	if in.Price != nil {
		plan.Price = *in.Price
	}
	if in.Currency != nil {
		plan.Currency = *in.Currency
	}
	if in.DurationDays != nil {
		plan.DurationDays = *in.DurationDays
	}
	if in.Features != nil {
		plan.Features = in.Features
	}
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	plan.UpdatedAt = time.Now().UTC()
	if err := p.plans.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *planUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(p.log, "PlanUC.Delete")()
	if err := p.plans.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	p.log.Info().Str("plan_id", id).Msg("plan deleted")
	return nil
}

func (p *planUC) ToggleActive(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.ToggleActive")()
	plan, err := p.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	plan.IsActive = !plan.IsActive
	plan.UpdatedAt = time.Now().UTC()
	if err := p.plans.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ensureNameFree fails with ErrAlreadyExists when another plan uses name.
func (p *planUC) ensureNameFree(ctx context.Context, name, selfID string) error {
	other, err := p.plans.FindByName(ctx, repository.NoTX, strings.TrimSpace(name))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return domain.ErrAlreadyExists
	}
	return nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}
