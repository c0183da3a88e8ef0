package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/logging"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user reads for the profile and admin screens.
type UserUseCase interface {
	Profile(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, int, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, log: logger}
}

func (u *userUC) Profile(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Profile")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) List(ctx context.Context, offset, limit int) ([]*model.User, int, error) {
	defer logging.TraceDuration(u.log, "UserUC.List")()
	offset, limit = clampPage(offset, limit)
	return u.users.List(ctx, repository.NoTX, offset, limit)
}

// Delete removes the user; their subscriptions go with them.
func (u *userUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "UserUC.Delete")()
	if err := u.users.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	u.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}
