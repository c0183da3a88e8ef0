package repository

import (
	"context"

	"appointment-booking/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Save inserts or updates by id. Duplicate email or phone yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByPhone(ctx context.Context, tx Tx, phone string) (*model.User, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.User, int, error)
	Delete(ctx context.Context, tx Tx, id string) error
	CountUsers(ctx context.Context, tx Tx) (int, error)
}

// -----------------------------
// Admins
// -----------------------------

type AdminRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Admin) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Admin, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Admin, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
