package repository

import (
	"context"

	"appointment-booking/internal/domain/model"
)

// PlanFilter narrows admin plan listings. A nil IsActive lists both.
type PlanFilter struct {
	IsActive *bool
	// Sort is one of "price", "-price", "name", "-createdAt"; empty means newest first.
	Sort   string
	Offset int
	Limit  int
}

// SubscriptionPlanRepository is the port for plan persistence.
type SubscriptionPlanRepository interface {
	// Save inserts or updates by id. A duplicate name yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, plan *model.SubscriptionPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.SubscriptionPlan, error)
	List(ctx context.Context, tx Tx, f PlanFilter) ([]*model.SubscriptionPlan, int, error)
	// ListActive returns active plans ordered by price.
	ListActive(ctx context.Context, tx Tx) ([]*model.SubscriptionPlan, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
